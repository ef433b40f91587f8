package main

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	authclient "github.com/goliatone/go-auth-client"
	"github.com/goliatone/go-auth-client/storage"
	"github.com/goliatone/go-print"
)

func runKeygen(out io.Writer) error {
	key, err := storage.GenerateSealKey()
	if err != nil {
		return err
	}
	fmt.Fprintln(out, hex.EncodeToString(key))
	return nil
}

func (a *app) restore(ctx context.Context) (authclient.Session, error) {
	return a.store.Restore(ctx)
}

func (a *app) inspect(ctx context.Context, out io.Writer) error {
	session, err := a.restore(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, renderSession(session, a.store.Now()))
	if session.IsAuthenticated() {
		fmt.Fprintln(out, print.MaybePrettyJSON(authclient.NewProfile(session.Claims, session.Role)))
	}
	return nil
}

func (a *app) login(ctx context.Context, out io.Writer) error {
	if len(a.args) == 0 {
		return errors.New("usage: sessionctl login [flags] <token>")
	}
	if _, err := a.restore(ctx); err != nil {
		return err
	}

	session, err := a.store.Login(ctx, strings.Join(a.args, " "))
	if err != nil {
		return err
	}
	fmt.Fprintln(out, renderSession(session, a.store.Now()))
	fmt.Fprintln(out, renderHint("landing: "+session.Role.LandingPath()))
	return nil
}

func (a *app) validate(ctx context.Context, out io.Writer) error {
	before, err := a.restore(ctx)
	if err != nil {
		return err
	}

	after := a.validator.EnsureCurrent(ctx)
	switch {
	case !before.IsAuthenticated():
		fmt.Fprintln(out, renderHint("no session stored"))
	case after.IsAuthenticated():
		fmt.Fprintln(out, renderOK("session valid until "+after.ExpiresAt.Local().Format("2006-01-02 15:04:05")))
	default:
		fmt.Fprintln(out, renderWarn("session expired, cleared"))
	}
	return nil
}

func (a *app) watch(ctx context.Context, out io.Writer) error {
	if _, err := a.restore(ctx); err != nil {
		return err
	}

	a.store.OnLogout(func(_ context.Context, event authclient.LogoutEvent) {
		fmt.Fprintln(out, renderWarn(fmt.Sprintf("logged out (%s) at %s", event.Reason, event.OccurredAt.Local().Format("15:04:05"))))
	})

	fmt.Fprintln(out, renderHint(fmt.Sprintf("validating every %s, ctrl-c to stop", a.cfg.GetValidationInterval())))
	err := a.validator.Watch(ctx, a.cfg.GetValidationInterval())
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (a *app) logout(ctx context.Context, out io.Writer) error {
	if _, err := a.restore(ctx); err != nil {
		return err
	}
	if err := a.store.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(out, renderOK("session cleared"))
	return nil
}

func (a *app) menu(ctx context.Context, out io.Writer) error {
	session, err := a.restore(ctx)
	if err != nil {
		return err
	}

	nav := authclient.NavigationFor(session)
	if !session.IsAuthenticated() && a.role != "" {
		role, ok := authclient.ParseRole(a.role)
		if !ok {
			return fmt.Errorf("unknown role %q", a.role)
		}
		nav = authclient.Navigation{
			Role:          role,
			Authenticated: role.IsAuthenticatedRole(),
			TopBar:        authclient.TopBar(role, role.IsAuthenticatedRole()),
			Menu:          authclient.MenuFor(role, role.IsAuthenticatedRole()),
			Landing:       role.LandingPath(),
		}
	}

	fmt.Fprintln(out, renderNavigation(nav))
	return nil
}

func (a *app) assign(ctx context.Context, out io.Writer) error {
	if a.roles == nil {
		return errors.New("assign needs --roles-dsn or AUTHCLIENT_ROLES_DSN")
	}
	if len(a.args) != 2 {
		return errors.New("usage: sessionctl assign [flags] <user-id> <role>")
	}

	role, ok := authclient.ParseRole(a.args[1])
	if !ok {
		return fmt.Errorf("unknown role %q", a.args[1])
	}

	record, err := a.roles.Assign(ctx, a.args[0], role)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, renderOK(fmt.Sprintf("%s is now %s", record.UserID, record.RoleName)))
	return nil
}
