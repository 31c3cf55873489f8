package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"codecraft-ai/internal/config"
	"codecraft-ai/internal/domain/model"
	"codecraft-ai/internal/domain/ports/repository"
	pg "codecraft-ai/internal/infra/db/postgres"
	"codecraft-ai/internal/infra/db/sqlite"
	"codecraft-ai/internal/infra/logging"
	"codecraft-ai/internal/infra/security"
	"codecraft-ai/internal/usecase"
)

var samples = []struct {
	Prompt, Explanation string
	Learning            bool
}{
	{
		Prompt:      "Reverse a string in Python",
		Explanation: "```python\ndef reverse(s: str) -> str:\n    return s[::-1]\n```\n\nSlicing with a step of -1 walks the string backwards.",
	},
	{
		Prompt:      "Read a CSV file and sum a column",
		Explanation: "```python\nimport csv\n\n# open the file and read rows as dicts\nwith open('data.csv', newline='') as f:\n    total = sum(float(row['amount']) for row in csv.DictReader(f))\nprint(total)\n```",
		Learning:    true,
	},
	{
		Prompt:      "Fetch JSON from an API",
		Explanation: "```python\nimport requests\n\nresp = requests.get('https://api.example.com/items', timeout=10)\nresp.raise_for_status()\nitems = resp.json()\n```",
	},
}

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	userID := flag.String("user", "", "user id to seed logs for")
	flag.Parse()

	if *userID == "" {
		fmt.Fprintln(os.Stderr, "usage: seed -user <user_id> [-config config.yaml]")
		os.Exit(2)
	}
	cfg, err := config.LoadConfig(*cfgPath, config.RoleClient, false)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if cfg.Database.URL == "" {
		fmt.Fprintln(os.Stderr, "database.url is required")
		os.Exit(1)
	}
	logger := logging.New(cfg.Log, true)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var (
		logs repository.LogRepository
		tm   repository.TransactionManager
	)
	switch cfg.Database.Driver {
	case "sqlite":
		db, err := sqlite.Open(cfg.Database.URL)
		if err != nil {
			logger.Fatal().Err(err).Msg("sqlite")
		}
		logs, tm = sqlite.NewLogRepo(db), sqlite.NewTxManager(db)
	default:
		pool, err := pg.NewPgxPool(ctx, &cfg.Database)
		if err != nil {
			logger.Fatal().Err(err).Msg("postgres")
		}
		defer pool.Close()
		if err := pg.Migrate(ctx, pool); err != nil {
			logger.Fatal().Err(err).Msg("migrate")
		}
		var enc *security.EncryptionService
		if cfg.Security.EncryptionKey != "" {
			if enc, err = security.NewEncryptionService(cfg.Security.EncryptionKey); err != nil {
				logger.Fatal().Err(err).Msg("encryption")
			}
		}
		logs, tm = pg.NewLogRepo(pool, enc), pg.NewTxManager(pool)
	}
	logUC := usecase.NewLogUseCase(logs, tm, logger)

	existing, err := logUC.List(ctx, *userID)
	if err != nil {
		logger.Fatal().Err(err).Msg("list logs")
	}
	if len(existing) > 0 {
		fmt.Printf("%d logs already present for %s. No changes.\n", len(existing), *userID)
		for _, l := range existing {
			fmt.Printf("  - %s (%s)\n", l.Prompt, l.Timestamp.Format(time.RFC3339))
		}
		return
	}

	now := time.Now().UTC()
	for i, s := range samples {
		l := model.Log{
			UserID:       *userID,
			ChatID:       uuid.NewString(),
			Timestamp:    now.Add(-time.Duration(len(samples)-i) * time.Hour),
			Prompt:       s.Prompt,
			Explanation:  s.Explanation,
			LearningMode: s.Learning,
		}
		if err := logUC.Save(ctx, &l); err != nil {
			logger.Fatal().Err(err).Str("prompt", s.Prompt).Msg("save log")
		}
		fmt.Printf("seeded: %s (chat_id=%s)\n", l.Prompt, l.ChatID)
	}
	fmt.Println("Seeding complete.")
}
