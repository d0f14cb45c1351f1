package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gin-gonic/gin"

	"medreport-backend/internal/analysis"
	googleauth "medreport-backend/internal/auth"
	"medreport-backend/internal/llm"
	"medreport-backend/internal/llm/gemini"
	"medreport-backend/internal/nlp"
	"medreport-backend/internal/nlp/huggingface"
	"medreport-backend/internal/ocr"
	"medreport-backend/internal/queue"
	"medreport-backend/internal/reports"
	"medreport-backend/internal/shared/config"
	"medreport-backend/internal/shared/server"
	"medreport-backend/internal/shared/storage/db"
	"medreport-backend/internal/shared/storage/object"
	localstore "medreport-backend/internal/shared/storage/object/local"
	s3store "medreport-backend/internal/shared/storage/object/s3"
	"medreport-backend/internal/users"
)

const (
	uploadsDefaultRegion = "us-east-1"
	uploadsDefaultPrefix = "reports/"
)

// App holds shared dependencies for the API server and the worker.
type App struct {
	Config            config.Config
	Router            *gin.Engine
	DB                *sql.DB
	Store             object.ObjectStore
	Queue             queue.Client
	UploadsPresign    *s3.PresignClient
	UploadsBucket     string
	UploadsPrefix     string
	ReportsRepo       reports.ReportsRepo
	AnalysisRepo      analysis.Repo
	UsersRepo         users.Repo
	ReportsService    *reports.Service
	AnalysisService   *analysis.Service
	AnalysisProcessor AnalysisProcessor
	UsersService      *users.Service
	Progress          *analysis.ProgressTracker
	ReportsHandler    *reports.Handler
	AnalysisHandler   *analysis.Handler
	UsersHandler      *users.Handler
	GoogleAuth        *googleauth.GoogleService
}

// AnalysisProcessor allows callers to override analysis processing for tests.
type AnalysisProcessor interface {
	ProcessAnalysis(ctx context.Context, analysisID string) error
}

// Build prepares shared dependencies and wires routes.
func Build(cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}
	ctx := context.Background()

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	queueClient, err := buildQueue(ctx)
	if err != nil {
		return nil, err
	}

	presign, bucket, prefix, err := buildUploadsPresign(ctx)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config:         cfg,
		DB:             sqlDB,
		Store:          store,
		Queue:          queueClient,
		UploadsPresign: presign,
		UploadsBucket:  bucket,
		UploadsPrefix:  prefix,
	}

	if err := buildServices(app); err != nil {
		return nil, err
	}

	app.Router = server.NewRouter(server.RouterDeps{
		Config:          app.Config,
		ReportsHandler:  app.ReportsHandler,
		AnalysisHandler: app.AnalysisHandler,
		UsersHandler:    app.UsersHandler,
		GoogleAuth:      app.GoogleAuth,
	})

	return app, nil
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: DATABASE_URL empty; using in-memory repositories")
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	var (
		sqlDB *sql.DB
		err   error
	)
	if db.IsLambdaRuntime() {
		opts := db.OptionsFromEnv(db.DefaultLambdaOptions())
		sqlDB, err = db.GetSingleton(ctx, cfg.DatabaseURL, opts)
	} else {
		opts := db.OptionsFromEnv(db.DefaultServerOptions())
		sqlDB, err = db.Connect(ctx, cfg.DatabaseURL, opts)
	}
	if err != nil {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: database connect failed; using in-memory repositories: %v", err)
			return nil, nil
		}
		return nil, err
	}

	// Lambda deploys run migrations out of band via cmd/migrate.
	if !db.IsLambdaRuntime() {
		if err := db.RunMigrations(ctx, sqlDB); err != nil {
			sqlDB.Close()
			if isDevLike(cfg.Env) {
				log.Printf("bootstrap: migrations failed; using in-memory repositories: %v", err)
				return nil, nil
			}
			return nil, err
		}
	}

	return sqlDB, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

func buildQueue(ctx context.Context) (queue.Client, error) {
	if strings.TrimSpace(os.Getenv("MR_SQS_QUEUE_URL")) == "" {
		return nil, nil
	}
	return queue.NewSQSClient(ctx)
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}

func buildUploadsPresign(ctx context.Context) (*s3.PresignClient, string, string, error) {
	bucket := strings.TrimSpace(os.Getenv("UPLOADS_S3_BUCKET"))
	if bucket == "" {
		return nil, "", "", nil
	}

	region := strings.TrimSpace(os.Getenv("AWS_REGION"))
	if region == "" {
		region = uploadsDefaultRegion
	}
	prefix := strings.TrimSpace(os.Getenv("UPLOADS_S3_PREFIX"))
	if prefix == "" {
		prefix = uploadsDefaultPrefix
	}
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, "", "", fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg)
	return s3.NewPresignClient(client), bucket, prefix, nil
}

func buildServices(app *App) error {
	var reportsRepo reports.ReportsRepo
	var analysisRepo analysis.Repo
	var userRepo users.Repo

	if app.DB != nil {
		reportsRepo = &reports.PGRepo{DB: app.DB}
		analysisRepo = &analysis.PGRepo{DB: app.DB}
		userRepo = &users.PGRepo{DB: app.DB}
	} else {
		reportsRepo = reports.NewMemoryRepo()
		analysisRepo = analysis.NewMemoryRepo()
		userRepo = users.NewMemoryRepo()
	}

	llmClient := llm.Client(llm.PlaceholderClient{})
	if app.Config.LLMProvider == "gemini" && strings.TrimSpace(app.Config.GeminiAPIKey) != "" {
		geminiClient, err := gemini.NewClient(app.Config.GeminiAPIKey, app.Config.LLMModel)
		if err != nil {
			return err
		}
		llmClient = geminiClient
	}

	var validator nlp.Validator
	if strings.TrimSpace(app.Config.HuggingFaceAPIKey) != "" {
		hfClient, err := huggingface.NewClient(app.Config.HuggingFaceAPIKey, os.Getenv("HUGGINGFACE_MODEL"))
		if err != nil {
			return err
		}
		validator = hfClient
	}

	extractor := &ocr.Engine{}
	if strings.TrimSpace(app.Config.OCRAPIURL) != "" {
		ocrClient, err := ocr.NewHTTPClient(app.Config.OCRAPIURL, app.Config.OCRAPIKey)
		if err != nil {
			return err
		}
		extractor.Images = ocrClient
	}

	progress := analysis.NewProgressTracker()

	analysisSvc := &analysis.Service{
		Repo:      analysisRepo,
		Reports:   reportsRepo,
		Store:     app.Store,
		Extractor: extractor,
		Validator: validator,
		LLM:       llmClient,
		Progress:  progress,
		JobQueue:  app.Queue,
		Model:     app.Config.LLMModel,
	}

	reportsSvc := &reports.Service{
		Store:  app.Store,
		Repo:   reportsRepo,
		Purger: analysisSvc,
		Progress: func(reportID, message string, percent int) {
			progress.Publish(reportID, analysis.Progress{
				Stage:   analysis.StageUploading,
				Message: message,
				Percent: percent,
			})
		},
		StorageProvider: app.Config.ObjectStoreType,
	}

	userSvc := users.NewService(userRepo)
	googleAuthSvc := googleauth.NewGoogleService(
		app.Config.GoogleClientID,
		app.Config.GoogleClientSecret,
		app.Config.GoogleRedirectURL,
		app.Config.UIRedirectURL,
		userSvc,
	)

	app.ReportsRepo = reportsRepo
	app.AnalysisRepo = analysisRepo
	app.UsersRepo = userRepo
	app.ReportsService = reportsSvc
	app.AnalysisService = analysisSvc
	app.AnalysisProcessor = analysisSvc
	app.UsersService = userSvc
	app.Progress = progress
	app.ReportsHandler = reports.NewHandler(reportsSvc)
	app.AnalysisHandler = analysis.NewHandler(analysisSvc, progress)
	app.UsersHandler = users.NewHandler(userSvc)
	app.GoogleAuth = googleAuthSvc

	return nil
}
