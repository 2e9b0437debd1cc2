package cmd

import (
	"context"
	"os"
	"strings"
	"time"

	coreconfig "github.com/AzielCF/az-crm/core/config"
	coreDB "github.com/AzielCF/az-crm/core/database"
	domainChat "github.com/AzielCF/az-crm/domains/chat"
	domainHealth "github.com/AzielCF/az-crm/domains/health"
	domainIntegration "github.com/AzielCF/az-crm/domains/integration"
	domainPairing "github.com/AzielCF/az-crm/domains/pairing"
	domainSend "github.com/AzielCF/az-crm/domains/send"
	domainWebhook "github.com/AzielCF/az-crm/domains/webhook"
	"github.com/AzielCF/az-crm/infrastructure/bot"
	"github.com/AzielCF/az-crm/infrastructure/events"
	"github.com/AzielCF/az-crm/infrastructure/meta"
	"github.com/AzielCF/az-crm/infrastructure/valkey"
	"github.com/AzielCF/az-crm/pkg/crypto"
	"github.com/AzielCF/az-crm/pkg/utils"
	"github.com/AzielCF/az-crm/repository"
	"github.com/AzielCF/az-crm/usecase"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gorm.io/gorm"
)

var (
	appDB    *gorm.DB
	vkClient *valkey.Client
	eventBus events.Publisher

	// Usecase
	integrationUsecase domainIntegration.IIntegrationUsecase
	chatUsecase        domainChat.IChatUsecase
	sendUsecase        domainSend.ISendUsecase
	webhookUsecase     domainWebhook.IWebhookUsecase
	pairingUsecase     domainPairing.IPairingUsecase
	healthUsecase      domainHealth.IHealthUsecase
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Short: "Multi-tenant WhatsApp CRM core",
	Long: `Webhook relay between the WhatsApp Business Platform and the hosted CRM:
inbound ingestion, delivery tracking, outbound relay and QR pairing.`,
}

func init() {
	utils.LoadConfig(".")

	time.Local = time.UTC

	rootCmd.CompletionOptions.DisableDefaultCmd = true

	initFlags()

	cobra.OnInitialize(initEnvConfig, initApp)
}

// initEnvConfig folds viper-managed overrides on top of the loaded config.
// Precedence is flags > viper (env) > defaults.
func initEnvConfig() {
	viper.AutomaticEnv()

	cfg, err := coreconfig.LoadConfig()
	if err != nil {
		logrus.Fatalf("failed to load configuration: %v", err)
	}

	// Application settings
	if envPort := viper.GetString("app_port"); envPort != "" {
		cfg.App.Port = envPort
	}
	if viper.IsSet("app_debug") {
		cfg.App.Debug = viper.GetBool("app_debug")
	}
	if envBasicAuth := viper.GetString("app_basic_auth"); envBasicAuth != "" {
		cfg.App.BasicAuth = strings.Split(envBasicAuth, ",")
	}

	// Database settings
	if envDriver := viper.GetString("db_driver"); envDriver != "" {
		cfg.Database.Driver = envDriver
	}

	// Meta settings
	if envAppSecret := viper.GetString("meta_app_secret"); envAppSecret != "" {
		cfg.Meta.AppSecret = envAppSecret
	}
	if envVerifyToken := viper.GetString("meta_verify_token"); envVerifyToken != "" {
		cfg.Meta.VerifyToken = envVerifyToken
	}
	if viper.IsSet("meta_verify_signature") {
		cfg.Meta.VerifySignature = viper.GetBool("meta_verify_signature")
	}

	if flagPort != "" {
		cfg.App.Port = flagPort
	}
	if flagDebug {
		cfg.App.Debug = true
	}
	if len(flagBasicAuth) > 0 {
		cfg.App.BasicAuth = flagBasicAuth
	}
	if flagDBDriver != "" {
		cfg.Database.Driver = flagDBDriver
	}
}

var (
	flagPort      string
	flagDebug     bool
	flagBasicAuth []string
	flagDBDriver  string
)

func initFlags() {
	rootCmd.PersistentFlags().StringVarP(
		&flagPort,
		"port", "p",
		"",
		"change port number with --port <number> | example: --port=8080",
	)
	rootCmd.PersistentFlags().BoolVarP(
		&flagDebug,
		"debug", "d",
		false,
		"hide or displaying log with --debug <true/false> | example: --debug=true",
	)
	rootCmd.PersistentFlags().StringSliceVarP(
		&flagBasicAuth,
		"basic-auth", "b",
		nil,
		"basic auth credential | -b=yourUsername:yourPassword",
	)
	rootCmd.PersistentFlags().StringVarP(
		&flagDBDriver,
		"db-driver", "",
		"",
		`database driver, sqlite or postgres --db-driver <string> | example: --db-driver="postgres"`,
	)
}

func initApp() {
	cfg := coreconfig.Global

	if cfg.App.Debug {
		logrus.SetLevel(logrus.DebugLevel)
	}

	if err := utils.CreateFolder(cfg.Paths.Storages); err != nil {
		logrus.Errorln(err)
	}

	if err := crypto.SetEncryptionKey(cfg.Security.SecretKey); err != nil {
		logrus.Fatalf("failed to set encryption key: %v", err)
	}

	ctx := context.Background()

	var err error
	appDB, err = coreDB.NewDatabase(cfg)
	if err != nil {
		logrus.Fatalf("failed to open database: %v", err)
	}

	integrationRepo := repository.NewIntegrationGormRepository(appDB)
	chatRepo := repository.NewChatGormRepository(appDB)
	pairingRepo := repository.NewPairingGormRepository(appDB)
	for _, init := range []func(context.Context) error{
		integrationRepo.Init, chatRepo.Init, pairingRepo.Init,
	} {
		if err := init(ctx); err != nil {
			logrus.Fatalf("failed to migrate schema: %v", err)
		}
	}

	// Valkey is an optional accelerator for phone-number-id resolution; the
	// service runs without it.
	if cfg.Valkey.Enabled {
		vkClient, err = valkey.NewClient(valkey.Config{
			Address:   cfg.Valkey.Address,
			Password:  cfg.Valkey.Password,
			DB:        cfg.Valkey.DB,
			KeyPrefix: cfg.Valkey.KeyPrefix,
		})
		if err != nil {
			logrus.WithError(err).Warn("[APP] valkey unavailable, integration cache disabled")
			vkClient = nil
		}
	}

	eventBus = events.NewNoopPublisher()
	if cfg.Events.AMQPURL != "" {
		pub, err := events.NewAMQPPublisher(cfg.Events.AMQPURL, cfg.Events.Exchange, cfg.Events.Producer)
		if err != nil {
			logrus.WithError(err).Warn("[APP] amqp unavailable, events disabled")
		} else {
			eventBus = pub
		}
	}

	graphClient := meta.NewGraphClient(cfg.Meta.GraphBaseURL, cfg.Meta.GraphVersion, cfg.Meta.HTTPTimeout)

	var notifier domainWebhook.BotNotifier
	if cfg.Bot.WebhookURL != "" {
		notifier = bot.NewForwarder(bot.Config{
			WebhookURL:    cfg.Bot.WebhookURL,
			WebhookSecret: cfg.Bot.WebhookSecret,
			HTTPTimeout:   cfg.Bot.HTTPTimeout,
		})
	}

	integrationUsecase = usecase.NewIntegrationService(integrationRepo, vkClient, cfg.Valkey.CacheTTL)
	chatUsecase = usecase.NewChatService(chatRepo, eventBus)
	sendUsecase = usecase.NewSendService(chatRepo, integrationUsecase, graphClient, eventBus)
	webhookUsecase = usecase.NewWebhookService(integrationUsecase, chatRepo, notifier, eventBus)
	pairingUsecase = usecase.NewPairingService(
		pairingRepo, integrationUsecase, integrationRepo,
		cfg.Pairing.CodeTTL, cfg.App.BaseUrl, cfg.Pairing.QRRenderURL,
	)
	healthUsecase = usecase.NewHealthService(appDB, vkClient, eventBus, cfg.App.Version)

	if !cfg.Meta.VerifySignature {
		logrus.Warn("[APP] webhook signature verification is DISABLED; never run like this in production")
	} else if cfg.Meta.AppSecret == "" {
		logrus.Warn("[APP] META_APP_SECRET is empty; every signed webhook will be rejected")
	}
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// StopApp performs a clean shutdown of all connections.
func StopApp() {
	logrus.Info("[APP] Stopping application...")

	if eventBus != nil {
		if err := eventBus.Close(); err != nil {
			logrus.Errorf("[APP] Error closing event publisher: %v", err)
		}
	}
	if vkClient != nil {
		vkClient.Close()
	}
	if appDB != nil {
		if sqlDB, err := appDB.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				logrus.Errorf("[APP] Error closing database: %v", err)
			}
		}
	}
}
