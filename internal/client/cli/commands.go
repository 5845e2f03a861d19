package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/securebank/internal/client/auth"
	"github.com/dmitrijs2005/securebank/internal/client/services"
	"github.com/dmitrijs2005/securebank/internal/common"
)

var errUsage = errors.New("usage")

func (a *App) isLoggedIn() bool {
	return a.session.CheckAccess(context.Background()) == nil
}

func (a *App) touch() { a.session.RecordActivity() }

func (a *App) fail(err error) error {
	a.logger.Debug(context.Background(), "command failed", "error", err)
	fmt.Fprintln(a.out, "Error:", userMessage(err))
	return err
}

func (a *App) usage(text string) error {
	fmt.Fprintln(a.out, "Usage:", text)
	return errUsage
}

// splitForce removes -f/--force from args.
func splitForce(args []string) (rest []string, force bool) {
	for _, arg := range args {
		if arg == "-f" || arg == "--force" {
			force = true
			continue
		}
		rest = append(rest, arg)
	}
	return rest, force
}

// Enroll sets the passcode and turns on passcode sign-in. Replacing an
// existing passcode needs a live session or the current passcode, and is
// refused during a lockout.
func (a *App) Enroll(ctx context.Context) error {
	const op = "enroll"
	if d := a.auth.RemainingLockout(); d > 0 {
		fmt.Fprintf(a.out, "Sign-in is locked. Try again in %s.\n", d.Round(time.Second))
		return common.SecurityError(op, common.ErrLockedOut)
	}
	enrolled, err := a.enroller.Enrolled(ctx)
	if err != nil {
		return a.fail(common.Classify(op, err))
	}
	if enrolled && !a.isLoggedIn() {
		fmt.Fprintln(a.out, "A passcode is already enrolled. Confirm it to set a new one.")
		if err := a.authenticate(ctx, auth.Prompt{Title: "Current passcode"}); err != nil {
			return err
		}
		// the confirmation must not leave a usable sign-in behind
		defer a.auth.Invalidate(ctx)
	}

	first, err := a.readSecret("New passcode")
	if err != nil {
		return a.fail(common.ValidationError(op, err))
	}
	defer common.WipeByteArray(first)
	second, err := a.readSecret("Repeat passcode")
	if err != nil {
		return a.fail(common.ValidationError(op, err))
	}
	defer common.WipeByteArray(second)
	if string(first) != string(second) {
		fmt.Fprintln(a.out, "Passcodes do not match.")
		return common.ValidationError(op, common.ErrValidation)
	}

	set := a.enroller.Enroll
	if enrolled {
		set = a.enroller.Replace
	}
	if err := set(ctx, first); err != nil {
		if common.KindOf(err) == common.KindValidation {
			fmt.Fprintln(a.out, "Passcode must have at least 4 characters.")
			return err
		}
		return a.fail(err)
	}
	if err := a.auth.EnableBiometric(ctx); err != nil {
		return a.fail(err)
	}
	if enrolled {
		fmt.Fprintln(a.out, "Passcode changed.")
		return nil
	}
	fmt.Fprintln(a.out, "Passcode enrolled. Type 'login' to sign in.")
	return nil
}

func (a *App) Login(ctx context.Context) error {
	if a.isLoggedIn() {
		fmt.Fprintln(a.out, "Already signed in.")
		return nil
	}
	if err := a.authenticate(ctx, auth.Prompt{Title: "Sign in to SecureBank", Subtitle: "enter your passcode"}); err != nil {
		return err
	}
	a.session.Start(ctx)
	fmt.Fprintln(a.out, "Signed in.")
	return nil
}

// authenticate runs one counted prompt and explains a failure.
func (a *App) authenticate(ctx context.Context, prompt auth.Prompt) error {
	err := a.auth.Authenticate(ctx, prompt)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, common.ErrLockedOut):
		fmt.Fprintf(a.out, "Sign-in is locked. Try again in %s.\n", a.auth.RemainingLockout().Round(time.Second))
		return err
	case errors.Is(err, common.ErrAuthenticationFailed):
		left := a.cfg.MaxFailedAttempts - a.auth.FailedAttempts()
		fmt.Fprintf(a.out, "Passcode not recognized. %d attempt(s) left.\n", left)
		return err
	}
	return a.fail(err)
}

func (a *App) Logout(ctx context.Context) error {
	a.session.End(ctx)
	fmt.Fprintln(a.out, "Signed out.")
	return nil
}

func (a *App) Account(ctx context.Context, args []string) error {
	_, force := splitForce(args)
	return renderStream(a.out, a.accounts.Account(ctx, force), printAccount)
}

func (a *App) History(ctx context.Context, args []string) error {
	rest, force := splitForce(args)
	page := 1
	if len(rest) > 0 {
		n, err := strconv.Atoi(rest[0])
		if err != nil || n < 1 {
			return a.usage("tx [page] [-f]")
		}
		page = n
	}
	return renderStream(a.out, a.transactions.History(ctx, page-1, services.DefaultPageSize, force), printTransactions)
}

func (a *App) Transaction(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return a.usage("txn <id>")
	}
	t, err := a.transactions.Transaction(ctx, args[0])
	if err != nil {
		return a.fail(err)
	}
	printTransaction(a.out, t)
	return nil
}

func (a *App) Cards(ctx context.Context, args []string) error {
	_, force := splitForce(args)
	return renderStream(a.out, a.cards.Cards(ctx, force), printCards)
}

func (a *App) Card(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return a.usage("card <id>")
	}
	c, err := a.cards.Card(ctx, args[0])
	if err != nil {
		return a.fail(err)
	}
	printCard(a.out, c)
	return nil
}

func (a *App) Reveal(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return a.usage("reveal <id>")
	}
	c, err := a.cards.Reveal(ctx, args[0])
	if err != nil {
		return a.fail(err)
	}
	printCard(a.out, c)
	return nil
}

func (a *App) Toggle(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return a.usage("toggle <id> on|off")
	}
	var active bool
	switch strings.ToLower(args[1]) {
	case "on":
		active = true
	case "off":
	default:
		return a.usage("toggle <id> on|off")
	}
	c, err := a.cards.ToggleCard(ctx, args[0], active)
	if err != nil {
		return a.fail(err)
	}
	fmt.Fprintf(a.out, "Card %s is now %s.\n", c.MaskedNumber, cardState(c))
	return nil
}

func (a *App) Refresh(ctx context.Context) error {
	if err := a.sync.RefreshAll(ctx); err != nil {
		return a.fail(err)
	}
	fmt.Fprintln(a.out, "All data refreshed.")
	return nil
}

func (a *App) Status(ctx context.Context) error {
	conn := "offline"
	if a.conn.IsConnected() {
		conn = "online"
	}
	fmt.Fprintf(a.out, "Connectivity: %s\n", conn)
	fmt.Fprintf(a.out, "Sign-in: %s", a.auth.State())
	if d := a.auth.RemainingLockout(); d > 0 {
		fmt.Fprintf(a.out, " (locked for %s)", d.Round(time.Second))
	} else if n := a.auth.FailedAttempts(); n > 0 {
		fmt.Fprintf(a.out, " (%d failed attempt(s))", n)
	}
	fmt.Fprintln(a.out)

	stats := a.session.Stats()
	fmt.Fprintf(a.out, "Session: %s", stats.State)
	if stats.TimeRemaining > 0 {
		fmt.Fprintf(a.out, ", %s left", stats.TimeRemaining.Round(time.Second))
	}
	if !stats.InForeground {
		fmt.Fprint(a.out, ", in background")
	}
	fmt.Fprintln(a.out)

	if a.probe != nil {
		fmt.Fprintf(a.out, "Device security: %s\n", a.probe.Status(ctx).Level())
	}

	st, err := a.sync.Status(ctx)
	if err != nil {
		return a.fail(err)
	}
	printCacheStatus(a.out, st, time.Now())
	return nil
}

func (a *App) Invalidate(ctx context.Context) error {
	if err := a.sync.InvalidateAll(ctx); err != nil {
		return a.fail(err)
	}
	fmt.Fprintln(a.out, "Cached data marked stale.")
	return nil
}

func (a *App) Background(ctx context.Context) error {
	a.session.EnterBackground()
	fmt.Fprintln(a.out, "App moved to background.")
	return nil
}

func (a *App) Foreground(ctx context.Context) error {
	a.session.EnterForeground()
	fmt.Fprintf(a.out, "App back in foreground (session %s).\n", a.session.State())
	return nil
}

// Reset signs out and wipes security data, the passcode and cached
// records after the user confirms.
func (a *App) Reset(ctx context.Context) error {
	answer, err := GetSimpleText(a.reader, "This removes your passcode and all cached data. Type 'yes' to continue", a.out)
	if err != nil || answer != "yes" {
		fmt.Fprintln(a.out, "Reset cancelled.")
		return err
	}
	a.session.End(ctx)
	if err := a.auth.ClearSecurityData(ctx); err != nil {
		return a.fail(err)
	}
	if err := a.secrets.RemovePrefix(ctx, credentialPrefix); err != nil {
		return a.fail(common.Classify("reset", err))
	}
	if err := a.sync.ClearCache(ctx); err != nil {
		return a.fail(err)
	}
	fmt.Fprintln(a.out, "All local data removed.")
	return nil
}

var _ execIface = (*App)(nil)
