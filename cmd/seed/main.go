// Package main seeds a fresh database: the central warehouse account
// and the initial product catalog. Safe to re-run; existing rows are
// left alone. With -hash it prints a bcrypt hash for ADMIN_PASSWORD_HASH
// and exits.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"

	"fructus/internal/core/apperror"
	"fructus/internal/core/types"
	"fructus/internal/domain/account"
	"fructus/internal/domain/product"
	"fructus/internal/infrastructure/storage/postgres"
	"fructus/internal/infrastructure/storage/postgres/catalog_repo"
	"fructus/pkg/logger"
)

var initialProducts = []struct {
	name  string
	price types.MinorUnits
}{
	{"Манго", 250_00},
	{"Папайя", 200_00},
	{"Клубника", 150_00},
	{"Грецкий орех", 180_00},
	{"Миндаль", 150_00},
	{"Кешью", 220_00},
	{"Фисташки", 200_00},
}

func main() {
	hashPassword := flag.String("hash", "", "print bcrypt hash for the given admin password and exit")
	flag.Parse()

	if *hashPassword != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(*hashPassword), bcrypt.DefaultCost)
		if err != nil {
			fmt.Printf("hash password: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(string(hash))
		return
	}

	_ = godotenv.Load()

	log, err := logger.New(logger.Config{Level: "info", Development: true})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL not set")
	}
	pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(dsn))
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	txManager := postgres.NewTxManager(pool)
	accountRepo := catalog_repo.NewAccountRepo(txManager)
	productRepo := catalog_repo.NewProductRepo(txManager)

	// Central warehouse account.
	if _, err := accountRepo.GetCentral(ctx); err != nil {
		if !apperror.IsNotFound(err) {
			log.Fatalw("check central account", "error", err)
		}
		central := account.New("CENTRAL", "Центральный склад")
		central.IsCentral = true
		if err := accountRepo.Create(ctx, central); err != nil {
			log.Fatalw("create central account", "error", err)
		}
		log.Infow("central account created", "id", central.ID)
	} else {
		log.Info("central account already present")
	}

	// Product catalog.
	existing, err := productRepo.List(ctx, false)
	if err != nil {
		log.Fatalw("list products", "error", err)
	}
	known := make(map[string]bool, len(existing))
	for _, p := range existing {
		known[p.Name] = true
	}

	created := 0
	for _, seed := range initialProducts {
		if known[seed.name] {
			continue
		}
		p := product.New(seed.name, seed.price)
		if err := productRepo.Create(ctx, p); err != nil {
			log.Fatalw("create product", "name", seed.name, "error", err)
		}
		created++
	}
	log.Infow("seed finished", "products_created", created, "products_existing", len(existing))
}
