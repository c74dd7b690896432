package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"text/tabwriter"
	"time"

	"github.com/GiovanniPad/linuxtips-dundie-rewards-api/internal/config"
	"github.com/GiovanniPad/linuxtips-dundie-rewards-api/internal/models"
	"github.com/GiovanniPad/linuxtips-dundie-rewards-api/internal/repository"
	"github.com/GiovanniPad/linuxtips-dundie-rewards-api/internal/service"
)

const usage = `Dundie Admin CLI - Management commands for the rewards ledger

Usage:
  admin <command> [options]

Commands:
  user-list     List all registered users
  create-user   Create a new account
  transfer      Move points between two accounts

Examples:
  # List users
  admin user-list

  # Create an account (username defaults to a slug of the name)
  admin create-user --name="Jim Halpert" --email=jim@dm.com --password=secret123 --dept=sales

  # Seed 500 points from the admin account
  admin transfer --from=admin --to=jim-halpert --amount=500
`

func main() {
	if len(os.Args) < 2 {
		fmt.Print(usage)
		os.Exit(1)
	}

	command := os.Args[1]

	switch command {
	case "user-list":
		runUserList(os.Args[2:])
	case "create-user":
		runCreateUser(os.Args[2:])
	case "transfer":
		runTransfer(os.Args[2:])
	case "help", "-h", "--help":
		fmt.Print(usage)
	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		fmt.Print(usage)
		os.Exit(1)
	}
}

func setup() (repository.Repository, service.Service) {
	cfg := config.LoadConfig()

	db, err := config.SetupDatabase(cfg)
	if err != nil {
		log.Fatalf("Failed to set up database: %v", err)
	}

	repo := repository.NewPostgresRepository(db)
	svc := service.NewDefaultService(
		repo,
		nil, // no mail queue in CLI scope
		cfg.Auth.JWTSecret,
		time.Duration(cfg.Auth.AccessTokenExpireMinutes)*time.Minute,
		time.Duration(cfg.Auth.RefreshTokenExpireMinutes)*time.Minute,
	)
	return repo, svc
}

func runUserList(args []string) {
	fs := flag.NewFlagSet("user-list", flag.ExitOnError)
	fs.Parse(args)

	repo, _ := setup()

	users, err := repo.ListUsers(context.Background())
	if err != nil {
		log.Fatalf("Failed to list users: %v", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tUSERNAME\tDEPT\tEMAIL\tCURRENCY")
	for _, u := range users {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", u.Name, u.Username, u.Dept, u.Email, u.Currency)
	}
	w.Flush()
}

func runCreateUser(args []string) {
	fs := flag.NewFlagSet("create-user", flag.ExitOnError)
	name := fs.String("name", "", "Display name (required)")
	email := fs.String("email", "", "Email address (required)")
	password := fs.String("password", "", "Password (required)")
	dept := fs.String("dept", "", "Department (required; 'management' grants superuser)")
	username := fs.String("username", "", "Username (defaults to a slug of the name)")
	currency := fs.String("currency", "USD", "Currency code")
	fs.Parse(args)

	if *name == "" || *email == "" || *password == "" || *dept == "" {
		fmt.Println("create-user requires --name, --email, --password and --dept")
		os.Exit(1)
	}

	_, svc := setup()

	resp, err := svc.CreateUser(context.Background(), models.CreateUserRequest{
		Name:     *name,
		Email:    *email,
		Password: *password,
		Dept:     *dept,
		Username: *username,
		Currency: *currency,
	})
	if err != nil {
		log.Fatalf("Failed to create user: %v", err)
	}

	fmt.Printf("Created user %q (dept %s)\n", resp.Username, resp.Dept)
}

func runTransfer(args []string) {
	fs := flag.NewFlagSet("transfer", flag.ExitOnError)
	from := fs.String("from", "admin", "Sender username")
	to := fs.String("to", "", "Recipient username (required)")
	amount := fs.Int64("amount", 0, "Amount of points (required, positive)")
	fs.Parse(args)

	if *to == "" || *amount <= 0 {
		fmt.Println("transfer requires --to and a positive --amount")
		os.Exit(1)
	}

	repo, svc := setup()
	ctx := context.Background()

	sender, err := repo.GetUserByUsername(ctx, *from)
	if err != nil || sender == nil {
		log.Fatalf("Unknown sender %q", *from)
	}

	resp, err := svc.CreateTransfer(ctx, sender, *to, models.CreateTransferRequest{Amount: *amount})
	if err != nil {
		log.Fatalf("Transfer failed: %v", err)
	}

	fmt.Printf("Transferred %d points from %s to %s\n", resp.Amount, resp.Sender, resp.Recipient)
}
