package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/quocanhngo/otpwatch/internal/config"
	"github.com/quocanhngo/otpwatch/internal/model"
	"github.com/quocanhngo/otpwatch/internal/repository"
	"github.com/quocanhngo/otpwatch/pkg/docstore"
	"github.com/quocanhngo/otpwatch/pkg/logger"
	"go.uber.org/zap"
)

func main() {
	// Load config
	cfg := config.Load()
	log := logger.New(cfg.App.Env, cfg.App.LogLevel)
	defer func() { _ = log.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if cfg.Store.Driver == "memory" {
		log.Fatal("❌ Seeding the in-memory store is pointless, set STORE_DRIVER=firestore")
	}

	app, err := docstore.NewFirebaseApp(ctx, docstore.FirestoreConfig{
		ProjectID:       cfg.Firebase.ProjectID,
		CredentialsFile: cfg.Firebase.CredentialsFile,
		CredentialsJSON: cfg.Firebase.CredentialsJSON,
	})
	if err != nil {
		log.Fatal("❌ Failed to initialize Firebase", zap.Error(err))
	}
	store, err := docstore.NewFirestore(ctx, app)
	if err != nil {
		log.Fatal("❌ Failed to connect to Firestore", zap.Error(err))
	}
	defer store.Close()
	log.Info("✅ Connected to Firestore")

	profiles := repository.NewProfileRepository(store)

	// Odd numbers get a completed profile so both login branches can be exercised
	log.Info("🌱 Seeding 10 profiles...")
	created := 0
	for i := 1; i <= 10; i++ {
		phone := fmt.Sprintf("+1555000%04d", i)

		if _, err := profiles.FindByPhone(ctx, phone); err == nil {
			log.Info("⏭️  Profile exists", zap.String("phone", phone))
			continue
		} else if !errors.Is(err, repository.ErrNotFound) {
			log.Fatal("❌ Failed to look up profile", zap.String("phone", phone), zap.Error(err))
		}

		profile := &model.Profile{
			PhoneNumber:     phone,
			ProfileComplete: i%2 == 1,
			CreatedAt:       time.Now(),
		}
		if err := profiles.Create(ctx, profile); err != nil {
			log.Fatal("❌ Failed to create profile", zap.String("phone", phone), zap.Error(err))
		}
		created++
		log.Info("✅ Created profile", zap.String("phone", phone), zap.Bool("complete", profile.ProfileComplete))
	}

	log.Info("🎉 Seeding completed", zap.Int("created", created))
}
