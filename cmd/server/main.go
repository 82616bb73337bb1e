package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/robfig/cron"

	config "github.com/socialapp/social-executor/configs"
	"github.com/socialapp/social-executor/internal/api/handlers"
	"github.com/socialapp/social-executor/internal/api/middleware"
	job "github.com/socialapp/social-executor/internal/jobs"
	"github.com/socialapp/social-executor/internal/queue"
	"github.com/socialapp/social-executor/internal/repository"
	"github.com/socialapp/social-executor/internal/scheduler"
	"github.com/socialapp/social-executor/internal/service"
	"github.com/socialapp/social-executor/pkg/utils"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Failed to load environment variables", err)
	}

	cfg := config.LoadConfig()

	if cfg.S3.Bucket == "" {
		log.Fatal("QUEUE_S3_BUCKET is not set")
	}
	cfg.Scheduler.AnchorChannel = scheduler.NormalizeAnchor(cfg.Scheduler.AnchorChannel)

	if cfg.AdminAPIKey == "" {
		key, err := utils.GenerateAdminKey(24)
		if err != nil {
			log.Fatalf("Failed to generate admin key: %v", err)
		}
		cfg.AdminAPIKey = key
		log.Printf("ADMIN_API_KEY not set, generated one for this run: %s", key)
	}

	db, err := sql.Open("postgres", cfg.PostgresURI)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer closeDB(db)

	if err := db.Ping(); err != nil {
		log.Fatalf("Database is unreachable: %v", err)
	}

	s3Client, err := repository.NewS3Client(cfg.S3)
	if err != nil {
		log.Fatalf("Failed to build S3 client: %v", err)
	}

	redisConn := asynq.RedisClientOpt{Addr: cfg.RedisURI}
	client := asynq.NewClient(redisConn)
	defer client.Close()

	app := fiber.New(fiber.Config{
		ReadTimeout:  10 * time.Minute,
		WriteTimeout: 10 * time.Minute,
		BodyLimit:    100 * 1024 * 1024, // 100 MB, inline media arrives base64 encoded
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			log.Printf("Error: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal server error"})
		},
	})

	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, X-API-Key",
		MaxAge:       3600,
	}))

	queueRepo := repository.NewQueueRepository(s3Client, cfg.S3.Bucket, cfg.S3.QueueKey)
	recordRepo := repository.NewPublishRecordRepository(db)

	queueService := service.NewQueueService(queueRepo)
	mediaService := service.NewMediaService(*cfg, s3Client)
	metaService := service.NewMetaService(*cfg, mediaService)
	publishService := service.NewPublishService(*cfg, queueService, metaService, recordRepo)

	authMiddleware := middleware.NewAuthMiddleware(*cfg)

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"ok": true})
	})

	draft := handlers.NewDraftHandler(*cfg, queueService, mediaService)
	approve := handlers.NewApproveHandler(*cfg, queueService, publishService)
	sched := handlers.NewSchedulerHandler(publishService, queueService, recordRepo)

	// The GET approve link authenticates with its own signed token.
	app.Get("/approve", approve.ApproveLink)

	requireKey := authMiddleware.RequireAPIKey()
	app.Post("/drafts", requireKey, draft.CreateDraft)
	app.Post("/approve", requireKey, approve.ApproveAPI)
	app.Post("/scheduler/run", requireKey, sched.RunSlot)
	app.Get("/posts", requireKey, sched.ListPosts)
	app.Get("/publishes", requireKey, sched.ListPublishes)
	app.Get("/debug/post", requireKey, sched.DebugPost)

	// cron slot runs
	slotJob := job.NewSlotJob(publishService, client)

	c := cron.NewWithLocation(scheduler.Location(cfg.Scheduler.Timezone))
	c.AddFunc(fmt.Sprintf("0 0 %d * * *", cfg.Scheduler.AMHour), slotJob.RunAM)
	c.AddFunc(fmt.Sprintf("0 0 %d * * *", cfg.Scheduler.PMHour), slotJob.RunPM)
	c.Start()

	go func() {
		server := asynq.NewServer(redisConn, asynq.Config{
			Concurrency: 2,
		})

		mux := asynq.NewServeMux()
		worker := queue.NewWorker(queueService, publishService)
		mux.HandleFunc(queue.TaskTypePublishPost, worker.HandlePublishPostTask)

		log.Println("Starting the Asynq server...")
		if err := server.Run(mux); err != nil {
			log.Fatalf("Could not start Asynq server: %v", err)
		}
	}()

	go func() {
		if err := app.Listen(cfg.ListenAddr); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()
	log.Printf("Server is running on %s", cfg.ListenAddr)

	gracefulShutdown(app, db)
}

func closeDB(db *sql.DB) {
	fmt.Fprint(os.Stdout, "Closing database connection... ")
	if err := db.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to close database: %v", err)
		return
	}
	fmt.Fprintln(os.Stdout, "Done")
}

func gracefulShutdown(app *fiber.App, db *sql.DB) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	<-quit
	log.Println("Shutting down server...")

	if err := app.Shutdown(); err != nil {
		log.Fatalf("Failed to shut down server: %v", err)
	}

	closeDB(db)
	log.Println("Server shutdown complete.")
}
