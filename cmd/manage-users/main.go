// Command manage-users creates an admin account or resets its password.
//
//	manage-users [-file data/admin_users.csv] <email> <password>
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/mayanov/tarotsite-go/internal/application/services"
	"github.com/mayanov/tarotsite-go/internal/infrastructure/observability/logging"
	"github.com/mayanov/tarotsite-go/internal/infrastructure/observability/performance"
	userstore "github.com/mayanov/tarotsite-go/internal/infrastructure/persistence/user"
	"github.com/mayanov/tarotsite-go/pkg/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	file := flag.String("file", cfg.AdminUsersFile, "admin credentials CSV file")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [-file path] <email> <password>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 2 {
		flag.Usage()
		os.Exit(1)
	}
	email, password := flag.Arg(0), flag.Arg(1)

	logger := logging.NewDiscardLogger()
	perf := performance.NewTracker(time.Second, nil, logger)
	users := userstore.NewCSVAdminRepository(*file, logger)
	authService := services.NewAuthService(logger, perf, users, nil, "", cfg.TokenTTL)

	created, err := authService.UpsertUser(email, password)
	if err != nil {
		log.Fatalf("Failed to save user %s: %v", email, err)
	}

	if created {
		fmt.Printf("User %s added successfully.\n", email)
	} else {
		fmt.Printf("User %s updated successfully.\n", email)
	}
}
