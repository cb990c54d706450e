package app

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/xenking/shopsync/internal/catalog"
)

// Run executes one CLI command against a freshly wired stack. It exists to
// exercise the full client path (transport chain included) against a live
// backend; the command surface mirrors the screens of the mobile client.
func Run(ctx context.Context, lg *zap.Logger, a *App, args []string) error {
	if err := a.Session.Restore(ctx); err != nil {
		lg.Warn("credential restore failed", zap.Error(err))
	}

	if len(args) == 0 {
		return errors.New("usage: shopsync <list|search|show|login|logout|profile|status>")
	}

	switch cmd := args[0]; cmd {
	case "list":
		if err := a.Catalog.LoadFirstPage(ctx); err != nil {
			return err
		}
		printListing(a.Catalog.Snapshot())
		return nil

	case "search":
		if len(args) < 2 {
			return errors.New("usage: shopsync search <query>")
		}
		if err := a.Catalog.Search(ctx, args[1]); err != nil {
			return err
		}
		printListing(a.Catalog.Snapshot())
		return nil

	case "show":
		if len(args) < 2 {
			return errors.New("usage: shopsync show <product-id>")
		}
		det, err := a.Catalog.GetByID(ctx, args[1])
		if err != nil {
			return err
		}
		fmt.Printf("%s\n%s\nprice: %s\nlocation: %s (%f, %f)\nseller: %s\n",
			det.Title, det.Description, det.Price,
			det.Location.Name, det.Location.Latitude, det.Location.Longitude,
			det.Owner.Email)
		return nil

	case "login":
		if len(args) < 3 {
			return errors.New("usage: shopsync login <email> <password>")
		}
		if err := a.Session.Login(ctx, args[1], args[2]); err != nil {
			return err
		}
		if prof := a.Session.Profile(); prof != nil {
			fmt.Printf("signed in as %s %s <%s>\n", prof.FirstName, prof.LastName, prof.Email)
		} else {
			fmt.Println("signed in")
		}
		return nil

	case "logout":
		a.Session.Logout()
		fmt.Println("signed out")
		return nil

	case "status":
		if err := a.Monitor.Check(ctx); err != nil {
			fmt.Printf("backend unreachable: %v\n", err)
		} else {
			fmt.Println("backend reachable")
		}
		fmt.Printf("session: %s\n", a.Session.State())
		return nil

	case "profile":
		prof, err := a.Client.GetProfile(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("%s %s <%s>\n", prof.FirstName, prof.LastName, prof.Email)
		return nil

	default:
		return errors.Errorf("unknown command %q", cmd)
	}
}

func printListing(snap catalog.Snapshot) {
	for _, p := range snap.Items {
		fmt.Printf("%-26s %10s  %s\n", p.ID, p.Price, p.Title)
	}
	fmt.Printf("page %d/%d (%d items)\n", snap.Page, snap.TotalPages, snap.TotalItems)
}
