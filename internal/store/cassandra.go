package store

import (
	"context"
	"fmt"

	config "example.com/snapgram/internal/init"
	"example.com/snapgram/internal/logger"
	"example.com/snapgram/internal/models"
	"github.com/gocql/gocql"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/cassandra"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

var logg = logger.New()

// --- Interfaces ---

type SessionInterface interface {
	Query(stmt string, values ...interface{}) *gocql.Query
	NewBatch(batchType gocql.BatchType) *gocql.Batch
	ExecuteBatch(batch *gocql.Batch) error
	Close()
}

// UserCounter names a denormalized counter column on a user.
type UserCounter string

const (
	CounterFollowers UserCounter = "followers"
	CounterFollowing UserCounter = "following"
	CounterPosts     UserCounter = "posts"
)

// PostCounter names a denormalized counter column on a post.
type PostCounter string

const (
	CounterLikes    PostCounter = "likes"
	CounterComments PostCounter = "comments"
)

// StoreInterface is the row-level access to every table. Lookups return a nil
// record and a nil error when the row does not exist. Insert*/Delete* methods
// on relation tables report whether the row was actually written or removed.
type StoreInterface interface {
	// users
	CreateUser(ctx context.Context, u models.User) (id string, created bool, err error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetUserByClerkID(ctx context.Context, clerkID string) (*models.User, error)
	UpdateUser(ctx context.Context, id, name, bio string) error
	AddUserCounter(ctx context.Context, userID string, c UserCounter, delta int64) error

	// follows
	InsertFollow(ctx context.Context, followerID, followingID string) (bool, error)
	DeleteFollow(ctx context.Context, followerID, followingID string) (bool, error)
	IsFollowing(ctx context.Context, followerID, followingID string) (bool, error)
	CountFollowers(ctx context.Context, userID string) (int64, error)
	CountFollowing(ctx context.Context, userID string) (int64, error)

	// posts
	InsertPost(ctx context.Context, p models.Post) error
	GetPost(ctx context.Context, id string) (*models.Post, error)
	ListPosts(ctx context.Context) ([]models.Post, error)
	ListPostsByUser(ctx context.Context, userID string) ([]models.Post, error)
	UpdateCaption(ctx context.Context, postID, caption string) error
	DeletePost(ctx context.Context, p models.Post) error
	CountPostsByUser(ctx context.Context, userID string) (int64, error)
	AddPostCounter(ctx context.Context, postID string, c PostCounter, delta int64) error

	// likes
	InsertLike(ctx context.Context, userID, postID string) (bool, error)
	DeleteLike(ctx context.Context, userID, postID string) (bool, error)
	HasLiked(ctx context.Context, userID, postID string) (bool, error)
	CountLikes(ctx context.Context, postID string) (int64, error)
	DeleteLikesForPost(ctx context.Context, postID string) error

	// saves
	InsertSave(ctx context.Context, s models.Save) (bool, error)
	DeleteSave(ctx context.Context, userID, postID string) (bool, error)
	HasSaved(ctx context.Context, userID, postID string) (bool, error)
	ListSaves(ctx context.Context, userID string) ([]models.Save, error)
	DeleteSavesForPost(ctx context.Context, postID string) error

	// comments
	InsertComment(ctx context.Context, c models.Comment) error
	GetComment(ctx context.Context, id string) (*models.Comment, error)
	ListComments(ctx context.Context, postID string) ([]models.Comment, error)
	CountComments(ctx context.Context, postID string) (int64, error)
	DeleteCommentsForPost(ctx context.Context, postID string) error

	// notifications
	InsertNotification(ctx context.Context, n models.Notification) error
	ListNotifications(ctx context.Context, receiverID string) ([]models.Notification, error)
	DeleteNotificationsForPost(ctx context.Context, postID string) error

	Close()
}

// --- Store Implementation ---

type Store struct {
	Session SessionInterface
}

// NewID returns a time-ordered identifier for a new row.
func NewID() string {
	return gocql.TimeUUID().String()
}

// New initializes Cassandra connection using config package.
func New(cfg *config.Config) (StoreInterface, error) {
	if err := Migrate(cfg); err != nil {
		return nil, err
	}

	cluster := newCluster(cfg)
	cluster.Keyspace = cfg.CassandraKeyspace
	cluster.Consistency = gocql.Quorum
	cluster.SerialConsistency = gocql.Serial

	sess, err := cluster.CreateSession()
	if err != nil {
		return nil, fmt.Errorf("failed to create Cassandra session: %w", err)
	}

	logg.Info("store", "Connected to Cassandra keyspace (host anonymized)")
	return &Store{Session: sess}, nil
}

func newCluster(cfg *config.Config) *gocql.ClusterConfig {
	cluster := gocql.NewCluster(cfg.CassandraHost)
	cluster.Timeout = cfg.CassandraTimeout
	cluster.ConnectTimeout = cfg.CassandraTimeout

	if cfg.CassandraUsername != "" && cfg.CassandraPassword != "" {
		cluster.Authenticator = gocql.PasswordAuthenticator{
			Username: cfg.CassandraUsername,
			Password: cfg.CassandraPassword,
		}
	}

	if cfg.CassandraDC != "" {
		cluster.HostFilter = gocql.DataCentreHostFilter(cfg.CassandraDC)
	}
	return cluster
}

// --- Ensure keyspace exists before migrations ---

func ensureKeyspace(cfg *config.Config) error {
	cluster := newCluster(cfg)
	cluster.Keyspace = "system"
	sess, err := cluster.CreateSession()
	if err != nil {
		return fmt.Errorf("failed to connect to Cassandra system keyspace: %w", err)
	}
	defer sess.Close()

	query := fmt.Sprintf(`
        CREATE KEYSPACE IF NOT EXISTS %s
        WITH replication = {'class': 'SimpleStrategy', 'replication_factor': %d};
    `, cfg.CassandraKeyspace, cfg.CassandraReplication)

	if err := sess.Query(query).Exec(); err != nil {
		return fmt.Errorf("failed to create keyspace: %w", err)
	}

	logg.Info("store", "Ensured Cassandra keyspace exists (keyspace name anonymized)")
	return nil
}

// --- Migration runner ---

// Migrate creates the keyspace if needed and applies pending migrations.
func Migrate(cfg *config.Config) error {
	if err := ensureKeyspace(cfg); err != nil {
		return fmt.Errorf("failed to ensure keyspace: %w", err)
	}
	if err := RunMigrations(cfg); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

func newMigrate(cfg *config.Config) (*migrate.Migrate, error) {
	sourceURL := fmt.Sprintf("file://%s", cfg.MigrationsPath)
	dbURL := fmt.Sprintf(
		"cassandra://%s/%s?x-migrations-table=schema_migrations&x-multi-statement=true",
		cfg.CassandraHost, cfg.CassandraKeyspace,
	)

	m, err := migrate.New(sourceURL, dbURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	return m, nil
}

// RollbackMigrations reverts every applied migration. It drops all tables.
func RollbackMigrations(cfg *config.Config) error {
	m, err := newMigrate(cfg)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Down(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("migration down failed: %w", err)
	}
	logg.Info("store", "Migrations rolled back")
	return nil
}

// RunMigrations applies every pending migration under cfg.MigrationsPath.
func RunMigrations(cfg *config.Config) error {
	m, err := newMigrate(cfg)
	if err != nil {
		return err
	}
	defer m.Close()

	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("migration up failed: %w", err)
	}

	if err == migrate.ErrNoChange {
		logg.Info("store", "No new migrations to apply")
	} else {
		logg.Info("store", "Migrations applied successfully")
	}
	return nil
}

// Close gracefully closes Cassandra session.
func (s *Store) Close() {
	if s.Session != nil {
		s.Session.Close()
		logg.Info("store", "Cassandra session closed")
	}
}

// count runs a single-partition COUNT(*) query.
func (s *Store) count(ctx context.Context, stmt string, key string) (int64, error) {
	var n int64
	if err := s.Session.Query(stmt, key).WithContext(ctx).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// casApplied runs a lightweight transaction and reports whether it applied.
func (s *Store) casApplied(ctx context.Context, stmt string, values ...interface{}) (bool, error) {
	result := make(map[string]interface{})
	return s.Session.Query(stmt, values...).WithContext(ctx).MapScanCAS(result)
}

func (s *Store) execBatch(ctx context.Context, b *gocql.Batch) error {
	return s.Session.ExecuteBatch(b.WithContext(ctx))
}
