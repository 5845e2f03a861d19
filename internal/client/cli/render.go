package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dmitrijs2005/securebank/internal/client/models"
	"github.com/dmitrijs2005/securebank/internal/common"
)

const timeLayout = "2006-01-02 15:04"

// userMessage turns an error into the text shown to the user. Details stay
// in the log.
func userMessage(err error) string {
	switch common.KindOf(err) {
	case common.KindCrypto:
		return "Local data could not be decrypted. Run 'reset' to start over."
	case common.KindNetwork:
		if errors.Is(err, common.ErrNoConnectivity) {
			return "You are offline and nothing is cached yet."
		}
		if errors.Is(err, common.ErrRateLimited) {
			return "Too many requests. Try again shortly."
		}
		return "The bank is unreachable right now. Try again later."
	case common.KindAuthentication:
		if errors.Is(err, common.ErrAuthenticationFailed) {
			return "Passcode not recognized."
		}
		return "Please sign in first ('login')."
	case common.KindSecurity:
		switch {
		case errors.Is(err, common.ErrLockedOut):
			return "Too many failed attempts. Sign-in is locked for now."
		case errors.Is(err, common.ErrDeviceInsecure):
			return "This device is not secure enough for that action."
		case errors.Is(err, common.ErrBiometricNotEnabled):
			return "No passcode enrolled. Run 'enroll' first."
		case errors.Is(err, common.ErrAlreadyEnrolled):
			return "A passcode is already enrolled. Sign in before changing it."
		}
		return "The action was blocked for security reasons."
	case common.KindDataNotFound:
		return "Not found."
	case common.KindValidation:
		return "The request or the response was invalid."
	default:
		return "Something went wrong."
	}
}

// renderStream prints every emission of a data request. It returns the
// error of a final failure, if any.
func renderStream[T any](w io.Writer, results <-chan models.Result[T], show func(io.Writer, T)) error {
	var last error
	for r := range results {
		r.Match(
			func() { fmt.Fprintln(w, "Loading...") },
			func(data T, stale bool) {
				last = nil
				if stale {
					fmt.Fprintln(w, "(cached, refreshing)")
				}
				show(w, data)
			},
			func(err error) {
				last = err
				fmt.Fprintln(w, "Error:", userMessage(err))
			},
		)
	}
	return last
}

func printAccount(w io.Writer, a models.Account) {
	status := "active"
	if !a.IsActive {
		status = "inactive"
	}
	fmt.Fprintf(w, "%s account %s (%s)\n", a.Type, a.MaskedNumber(), status)
	fmt.Fprintf(w, "Balance: %s\n", a.Balance)
	fmt.Fprintf(w, "Updated: %s\n", a.LastUpdated.Local().Format(timeLayout))
}

func printTransactions(w io.Writer, txs []models.Transaction) {
	if len(txs) == 0 {
		fmt.Fprintln(w, "No transactions.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tID\tDESCRIPTION\tAMOUNT\tSTATUS")
	for _, t := range txs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", t.Date.Local().Format(timeLayout), t.ID, t.Description, t.Amount, t.Status)
	}
	tw.Flush()
}

func printTransaction(w io.Writer, t models.Transaction) {
	fmt.Fprintf(w, "%s  %s\n", t.ID, t.Date.Local().Format(timeLayout))
	fmt.Fprintf(w, "%s %s: %s\n", t.Type, t.Status, t.Amount)
	fmt.Fprintf(w, "Description: %s\n", t.Description)
	if t.RecipientName != "" {
		fmt.Fprintf(w, "Recipient: %s %s\n", t.RecipientName, t.RecipientAccount)
	}
	if t.Reference != "" {
		fmt.Fprintf(w, "Reference: %s\n", t.Reference)
	}
	if t.BalanceAfter != nil {
		fmt.Fprintf(w, "Balance after: %s\n", t.BalanceAfter)
	}
}

func cardState(c models.Card) string {
	switch {
	case c.IsBlocked:
		return "blocked"
	case c.IsActive:
		return "active"
	default:
		return "frozen"
	}
}

func printCards(w io.Writer, cards []models.Card) {
	if len(cards) == 0 {
		fmt.Fprintln(w, "No cards.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCARD\tTYPE\tEXPIRES\tSTATE")
	for _, c := range cards {
		fmt.Fprintf(tw, "%s\t%s %s\t%s\t%s\t%s\n", c.ID, c.Brand, c.MaskedNumber, c.Type, c.Expiry(), cardState(c))
	}
	tw.Flush()
}

func printCard(w io.Writer, c models.Card) {
	number := c.MaskedNumber
	if c.Number != "" {
		number = c.Number
	}
	fmt.Fprintf(w, "%s %s %s (%s)\n", c.Brand, strings.ToLower(string(c.Type)), number, cardState(c))
	fmt.Fprintf(w, "Holder: %s  Expires: %s\n", c.HolderName, c.Expiry())
	if c.CVV != "" {
		fmt.Fprintf(w, "CVV: %s\n", c.CVV)
	}
	fmt.Fprintf(w, "Limits: %s daily, %s monthly\n", c.DailyLimit, c.MonthlyLimit)
	if c.LastUsed != nil {
		fmt.Fprintf(w, "Last used: %s\n", c.LastUsed.Local().Format(timeLayout))
	}
}

func printCacheStatus(w io.Writer, s models.CacheStatus, now time.Time) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CLASS\tRECORDS\tSTATE\tUPDATED")
	for _, c := range s.Classes {
		state, updated := "empty", "-"
		if c.Cached {
			state = "stale"
			if c.Valid {
				state = "fresh"
			}
			updated = now.Sub(c.LastUpdate).Round(time.Second).String() + " ago"
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", c.Class, c.RecordCount, state, updated)
	}
	tw.Flush()
}
