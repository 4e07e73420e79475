package main

import (
	"context"
	"net/http"

	"github.com/bwmarrin/snowflake"
	"github.com/questx-lab/luckydraw/config"
	"github.com/questx-lab/luckydraw/internal/domain"
	"github.com/questx-lab/luckydraw/internal/domain/spinner"
	"github.com/questx-lab/luckydraw/internal/entity"
	"github.com/questx-lab/luckydraw/internal/repository"
	"github.com/questx-lab/luckydraw/pkg/kafka"
	"github.com/questx-lab/luckydraw/pkg/logger"
	"github.com/questx-lab/luckydraw/pkg/pubsub"
	"github.com/questx-lab/luckydraw/pkg/router"
	"github.com/questx-lab/luckydraw/pkg/storage"
	"github.com/questx-lab/luckydraw/pkg/xcontext"
	"github.com/questx-lab/luckydraw/pkg/xredis"
	"github.com/urfave/cli/v2"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type closer interface {
	Stop(context.Context) error
}

type srv struct {
	app *cli.App
	ctx context.Context

	redisClient xredis.Client
	publisher   pubsub.Publisher
	storage     storage.Storage
	node        *snowflake.Node
	closers     []closer

	userRepo   repository.UserRepository
	wheelRepo  repository.WheelRepository
	entryRepo  repository.EntryRepository
	drawRepo   repository.DrawRepository
	winnerRepo repository.WinnerRepository
	auditRepo  repository.AuditRepository

	auditRecorder *domain.AuditRecorder
	wheelProvider *domain.WheelProvider

	wheelDomain  domain.WheelDomain
	entryDomain  domain.EntryDomain
	drawDomain   domain.DrawDomain
	auditDomain  domain.AuditDomain
	exportDomain domain.ExportDomain

	router *router.Router
	server *http.Server
}

// loadCommon prepares everything a command needs to run the domains: configs,
// logger, database, optional infrastructure, repositories and domains.
func (s *srv) loadCommon(ct *cli.Context) error {
	if err := s.loadConfig(ct); err != nil {
		return err
	}

	s.loadLogger()
	s.ctx = xcontext.WithDB(s.ctx, s.newDatabase())
	s.loadRedisClient()
	s.loadPublisher()
	s.loadStorage()
	s.loadRepos()
	s.loadDomains()
	return nil
}

func (s *srv) loadConfig(ct *cli.Context) error {
	cfg, err := config.Load(ct.String("config"))
	if err != nil {
		return err
	}

	s.ctx = xcontext.WithConfigs(ct.Context, cfg)
	return nil
}

func (s *srv) loadLogger() {
	cfg := xcontext.Configs(s.ctx).Log

	var log logger.Logger
	if cfg.Development {
		log = logger.NewDevelopmentLogger(logger.ParseLevel(cfg.Level))
	} else {
		log = logger.NewLogger(logger.ParseLevel(cfg.Level))
	}

	s.ctx = xcontext.WithLogger(s.ctx, log)
}

func (s *srv) newDatabase() *gorm.DB {
	cfg := xcontext.Configs(s.ctx).Database

	var dialector gorm.Dialector
	switch cfg.Driver {
	case "sqlite":
		dialector = sqlite.Open(cfg.ConnectionString())
	default:
		dialector = mysql.New(mysql.Config{
			DSN:                       cfg.ConnectionString(),
			DefaultStringSize:         256,
			DisableDatetimePrecision:  false,
			DontSupportRenameIndex:    true,
			DontSupportRenameColumn:   true,
			SkipInitializeWithVersion: false,
		})
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		panic(err)
	}

	if cfg.Driver == "sqlite" {
		sqlDB, err := db.DB()
		if err != nil {
			panic(err)
		}

		// sqlite serializes writers, a single connection avoids busy errors.
		sqlDB.SetMaxOpenConns(1)
	}

	return db
}

func (s *srv) migrateDB() error {
	cfg := xcontext.Configs(s.ctx).Database
	if cfg.Driver == "sqlite" {
		return entity.MigrateTable(s.ctx)
	}

	sqlDB, err := xcontext.DB(s.ctx).DB()
	if err != nil {
		return err
	}

	return repository.DoSqlMigration(sqlDB, xcontext.Logger(s.ctx))
}

func (s *srv) loadRedisClient() {
	cfg := xcontext.Configs(s.ctx).Redis
	if cfg.Addr == "" {
		xcontext.Logger(s.ctx).Infof("Redis is not configured, the wheel is read from the database")
		return
	}

	client, err := xredis.NewClient(s.ctx, cfg)
	if err != nil {
		xcontext.Logger(s.ctx).Warnf("Cannot connect to redis, the wheel is read from the database: %v", err)
		return
	}

	s.redisClient = client
	s.closers = append(s.closers, client)
}

func (s *srv) loadPublisher() {
	cfg := xcontext.Configs(s.ctx).Kafka
	if len(cfg.Addrs) == 0 {
		s.publisher = pubsub.NewNoopPublisher()
		return
	}

	publisher, err := kafka.NewPublisher(cfg.ClientID, cfg.Addrs)
	if err != nil {
		xcontext.Logger(s.ctx).Warnf("Cannot connect to kafka, draw events are dropped: %v", err)
		s.publisher = pubsub.NewNoopPublisher()
		return
	}

	s.publisher = publisher
	s.closers = append(s.closers, publisher)
}

func (s *srv) loadStorage() {
	cfg := xcontext.Configs(s.ctx).Storage
	if cfg.Bucket == "" {
		return
	}

	s3Storage, err := storage.NewS3Storage(cfg)
	if err != nil {
		xcontext.Logger(s.ctx).Warnf("Cannot create s3 storage, archives are disabled: %v", err)
		return
	}

	s.storage = s3Storage
}

func (s *srv) loadRepos() {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}

	s.node = node
	s.userRepo = repository.NewUserRepository()
	s.wheelRepo = repository.NewWheelRepository()
	s.entryRepo = repository.NewEntryRepository(s.node)
	s.drawRepo = repository.NewDrawRepository()
	s.winnerRepo = repository.NewWinnerRepository()
	s.auditRepo = repository.NewAuditRepository()
}

func (s *srv) loadDomains() {
	s.auditRecorder = domain.NewAuditRecorder(s.auditRepo)
	s.wheelProvider = domain.NewWheelProvider(s.wheelRepo, s.redisClient)

	s.wheelDomain = domain.NewWheelDomain(s.wheelRepo, s.entryRepo, s.userRepo,
		s.wheelProvider, s.redisClient, spinner.NewResolver(), s.auditRecorder)
	s.entryDomain = domain.NewEntryDomain(s.entryRepo, s.drawRepo, s.userRepo, s.auditRecorder)
	s.drawDomain = domain.NewDrawDomain(s.drawRepo, s.winnerRepo, s.entryRepo, s.userRepo,
		s.auditRecorder, s.publisher)
	s.auditDomain = domain.NewAuditDomain(s.auditRepo, s.auditRecorder)
	s.exportDomain = domain.NewExportDomain(s.entryRepo, s.drawRepo, s.winnerRepo, s.userRepo, s.storage)
}

func (s *srv) stop() {
	for _, c := range s.closers {
		if err := c.Stop(s.ctx); err != nil {
			xcontext.Logger(s.ctx).Warnf("Cannot stop: %v", err)
		}
	}
}
