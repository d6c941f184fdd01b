package main

import (
	"flag"
	"fmt"
	"time"

	"go-backend/internal/clients"
	"go-backend/internal/config"
	"go-backend/internal/db"
	"go-backend/internal/events"
	"go-backend/internal/handlers"
	"go-backend/internal/repository"
	"go-backend/internal/router"
	"go-backend/internal/services"

	"github.com/sirupsen/logrus"
)

func main() {
	configPath := flag.String("config", "", "path to the config file")
	flag.Parse()

	logger := logrus.StandardLogger()
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	if err := config.LoadConfig(*configPath); err != nil {
		logrus.WithError(err).Fatal("❌ Failed to load config")
	}

	db.InitDB()

	revocationRepo := repository.NewRevocationRepository(db.DB)
	issuedClaimRepo := repository.NewIssuedClaimRepository(db.DB)

	cfg := config.AppConfig
	priceClient := clients.NewPriceClient(
		cfg.PriceFeed.URL,
		time.Duration(cfg.PriceFeed.CacheTTL)*time.Second,
		time.Duration(cfg.PriceFeed.Timeout)*time.Second,
		cfg.PriceFeed.DefaultUSD,
	)
	identityClient := clients.NewIdentityClient(
		cfg.Identity.BaseURL,
		cfg.Identity.APIKey,
		time.Duration(cfg.Identity.Timeout)*time.Second,
		cfg.Identity.MaxFID,
	)
	captchaClient := clients.NewCaptchaClient(
		cfg.Captcha.VerifyURL,
		cfg.Captcha.Secret,
		time.Duration(cfg.Captcha.Timeout)*time.Second,
	)

	eligibility := services.NewEligibilityService(revocationRepo)

	// a nil attester fails every claim closed instead of killing the
	// process; the rest of the API stays up
	attester, err := services.NewAttesterService(
		cfg.Reward.SigningKey,
		time.Duration(cfg.Reward.AttestationWindow)*time.Second,
		time.Duration(cfg.Reward.VoucherWindow)*time.Second,
	)
	if err != nil {
		logrus.WithError(err).Error("❌ Attester unavailable, all claim requests will be rejected")
		attester = nil
	}

	relay := services.NewRelayService()
	if err := relay.InitializeClients(); err != nil {
		logrus.WithError(err).Warn("⚠️ RPC client initialization incomplete, affected chains will reject requests")
	}
	defer relay.Close()

	push := services.NewPushService()
	relay.SetNotifier(push)

	publisher := events.NewPublisher()
	defer publisher.Close()

	h := &router.Handlers{
		Attest:      handlers.NewAttestHandler(captchaClient, identityClient, eligibility, attester, issuedClaimRepo, publisher),
		Claim:       handlers.NewClaimHandler(identityClient, eligibility, attester, priceClient, relay, issuedClaimRepo, publisher),
		Nonce:       handlers.NewNonceHandler(relay),
		Revocation:  handlers.NewRevocationHandler(identityClient, revocationRepo, publisher),
		WebSocket:   handlers.NewWebSocketHandler(push),
		AdminAuth:   handlers.NewAdminAuthHandler(),
		AdminClaims: handlers.NewAdminClaimsHandler(issuedClaimRepo),
	}

	engine := router.SetupRouter(h, logger)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	logrus.WithField("addr", addr).Info("🚀 Server starting")
	if err := engine.Run(addr); err != nil {
		logrus.WithError(err).Fatal("❌ Server exited")
	}
}
