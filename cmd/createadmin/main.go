// Command createadmin creates a staff user with administrator rights.
//
//	createadmin -email admin@example.com [-d dsn]
//
// The password is read from the terminal twice, without echo.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/dmitrijs2005/filevault/internal/common"
	"github.com/dmitrijs2005/filevault/internal/flagx"
	"github.com/dmitrijs2005/filevault/internal/prompt"
	"github.com/dmitrijs2005/filevault/internal/server"
	"github.com/dmitrijs2005/filevault/internal/server/config"
	"github.com/dmitrijs2005/filevault/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/filevault/internal/server/services"
)

func main() {
	ctx := context.Background()
	cfg := config.LoadConfig()

	var email string
	fs := flag.NewFlagSet("createadmin", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&email, "email", "", "admin email")
	_ = fs.Parse(flagx.FilterArgs(os.Args[1:], []string{"-email"}))

	if err := run(ctx, cfg, email); err != nil {
		log.Fatalf("%v", err)
	}
}

func run(ctx context.Context, cfg *config.Config, email string) error {
	var err error
	if email == "" {
		email, err = prompt.Line(bufio.NewReader(os.Stdin), "Email address", os.Stdout)
		if err != nil {
			return err
		}
	}

	password, err := prompt.NewPassword(os.Stdout)
	if err != nil {
		return err
	}

	db, err := server.OpenDB(ctx, cfg.DatabaseDSN)
	if err != nil {
		return err
	}
	defer db.Close()

	m := repomanager.NewPostgresRepositoryManager()
	if err := m.RunMigrations(ctx, db); err != nil {
		return fmt.Errorf("migrations error: %w", err)
	}

	u, err := services.NewUserService(db, m, cfg).CreateAdmin(ctx, email, password)
	var ve *common.ValidationError
	switch {
	case errors.As(err, &ve):
		return fmt.Errorf("invalid input: %s", ve.Error())
	case errors.Is(err, common.ErrorConflict):
		return fmt.Errorf("a user with email %s already exists", email)
	case err != nil:
		return err
	}

	fmt.Printf("Superuser %s created (id %s).\n", u.Email, u.ID)
	return nil
}
