package http

import (
	"github.com/readledger/readledger/internal/auth"
	"github.com/readledger/readledger/internal/database"
	"github.com/readledger/readledger/internal/database/books"
	"github.com/readledger/readledger/internal/database/categories"
	"github.com/readledger/readledger/internal/database/readinglogs"
	"github.com/readledger/readledger/internal/database/userbooks"
	"github.com/readledger/readledger/internal/database/users"
	"github.com/readledger/readledger/internal/metadata"
	"github.com/readledger/readledger/internal/progress"
	"github.com/readledger/readledger/internal/tasks"
)

// RouterConfig contains all dependencies and configuration needed
// to create the HTTP router. This replaces a long parameter list
// in NewRouter for better maintainability.
type RouterConfig struct {
	// Core dependencies
	Database *database.Database

	Users       *users.Repository
	Books       *books.Repository
	Categories  *categories.Repository
	UserBooks   *userbooks.Repository
	ReadingLogs *readinglogs.Repository
	Progress    *progress.Service

	// Authentication
	AuthService    *auth.Service
	SessionManager *auth.SessionManager
	AuthMiddleware *auth.Middleware

	// Metadata enrichment (optional)
	MetadataEnricher *metadata.Enricher

	// Task queue client (optional)
	TaskClient *tasks.Client

	// Application info
	Version string
}
