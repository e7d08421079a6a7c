package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/jrsteele09/go-charger-client/charger"
	"github.com/jrsteele09/go-charger-client/internal/utils"
	"github.com/jrsteele09/go-charger-client/session"
	"github.com/jrsteele09/go-charger-client/store"
	"github.com/jrsteele09/go-charger-client/token"
	"github.com/jrsteele09/go-charger-client/users"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const timeLayout = "2006-01-02 15:04"

func newRootCommand() *cobra.Command {
	var (
		configPath string
		logLevel   string
		a          *app
	)

	root := &cobra.Command{
		Use:           "chargers",
		Short:         "Browse EV chargers and manage reservations",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			a, err = newApp(configPath, logLevel)
			return err
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a != nil {
				a.close()
			}
		},
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log.level")

	appFn := func() *app { return a }
	root.AddCommand(
		newLoginCommand(appFn),
		newLogoutCommand(appFn),
		newStatusCommand(appFn),
		newChargersCommand(appFn),
		newReservationsCommand(appFn),
		newReserveCommand(appFn),
		newCancelCommand(appFn),
		newKeepaliveCommand(appFn),
		newVerifyCommand(appFn),
	)
	return root
}

func newLoginCommand(appFn func() *app) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with email and password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := appFn()
			ctx := cmd.Context()

			if a.session.EvaluatePhase(ctx) == session.PhaseLoggedIn {
				fmt.Fprintf(cmd.OutOrStdout(), "Already signed in as %s\n", a.session.Identity().DisplayName())
				return nil
			}

			if password == "" {
				password = os.Getenv("CHARGERS_PASSWORD")
			}
			if email == "" || password == "" {
				var err error
				email, password, err = prompt(cmd.InOrStdin(), cmd.OutOrStdout(), email, password)
				if err != nil {
					return err
				}
			}

			resp, err := a.client.SignIn(ctx, email, password)
			if err != nil {
				a.logger.Debug().Err(err).Msg("sign in failed")
				return fmt.Errorf("login failed")
			}

			creds := session.Credentials{
				AccessToken:  resp.AccessToken,
				RefreshToken: resp.RefreshToken,
				User:         utils.Ptr(users.User{UID: resp.UserUID, Email: email}),
			}
			if err := a.session.StoreCredentials(ctx, creds); err != nil {
				return err
			}
			if a.session.EvaluatePhase(ctx) == session.PhaseLoggedOut {
				return fmt.Errorf("login failed: the service issued credentials that are already expiring")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s\n", creds.User.DisplayName())
			return nil
		},
	}
	cmd.Flags().StringVarP(&email, "email", "e", "", "account email")
	cmd.Flags().StringVarP(&password, "password", "p", "", "account password (or CHARGERS_PASSWORD)")
	return cmd
}

func prompt(in io.Reader, out io.Writer, email, password string) (string, string, error) {
	reader := bufio.NewReader(in)
	read := func(label string) (string, error) {
		fmt.Fprintf(out, "%s: ", label)
		line, err := reader.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", err
		}
		return strings.TrimSpace(line), nil
	}

	var err error
	if email == "" {
		if email, err = read("Email"); err != nil {
			return "", "", err
		}
	}
	if password == "" {
		if password, err = read("Password"); err != nil {
			return "", "", err
		}
	}
	if email == "" || password == "" {
		return "", "", fmt.Errorf("email and password are required")
	}
	return email, password, nil
}

func newLogoutCommand(appFn func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored credentials",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := appFn().session.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
			return nil
		},
	}
}

func newStatusCommand(appFn func() *app) *cobra.Command {
	var check bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the session phase and credential lifetimes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := appFn()
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			if check {
				outcome, err := a.session.RefreshIfNeeded(ctx)
				fmt.Fprintf(out, "Check:    %s\n", outcome)
				if err != nil {
					fmt.Fprintf(out, "          %v\n", err)
				}
			}

			now := time.Now()
			fmt.Fprintf(out, "Phase:    %s\n", a.session.EvaluatePhase(ctx))
			fmt.Fprintf(out, "User:     %s\n", a.session.Identity().DisplayName())
			for _, key := range []string{store.KeyAccessToken, store.KeyRefreshToken} {
				raw, err := a.store.Get(ctx, key)
				if err != nil {
					fmt.Fprintf(out, "%-9s absent\n", key+":")
					continue
				}
				fmt.Fprintf(out, "%-9s %s\n", key+":", describeCredential(raw, now))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&check, "check", false, "run one refresh check first")
	return cmd
}

func describeCredential(raw string, now time.Time) string {
	exp, err := token.Expiry(raw)
	if err != nil {
		return "invalid (" + err.Error() + ")"
	}
	if !exp.After(now) {
		return "expired at " + exp.Local().Format(timeLayout)
	}
	return fmt.Sprintf("expires %s (in %s)", exp.Local().Format(timeLayout), token.Remaining(raw, now).Round(time.Second))
}

func newChargersCommand(appFn func() *app) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "chargers",
		Short: "List chargers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := appFn()
			ctx := cmd.Context()
			if err := a.requireSession(ctx); err != nil {
				return err
			}

			pager := charger.NewPager(a.client, a.cfg.GetPageThreshold())
			var err error
			if all {
				_, err = pager.LoadAll(ctx)
			} else {
				_, err = pager.LoadMore(ctx)
			}
			if err != nil {
				return friendly(err)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tADDRESS")
			for _, c := range pager.Chargers() {
				fmt.Fprintf(w, "%d\t%s\t%s\n", c.ID, c.Name, c.Address)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			if pager.HasMore() {
				fmt.Fprintln(cmd.OutOrStdout(), "More chargers available, use --all")
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&all, "all", "a", false, "load every page")
	return cmd
}

func newReservationsCommand(appFn func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "reservations CHARGER_ID",
		Short: "List the reservations of a charger",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFn()
			ctx := cmd.Context()
			chargerID, err := parseID("charger id", args[0])
			if err != nil {
				return err
			}
			if err := a.requireSession(ctx); err != nil {
				return err
			}

			reservations, err := a.chargers.Reservations(ctx, chargerID)
			if err != nil {
				return friendly(err)
			}
			if len(reservations) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No reservations")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tFROM\tUNTIL\tMINE")
			for _, r := range reservations {
				mine := ""
				if a.chargers.CanCancel(r) {
					mine = "yes"
				}
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", r.ID, r.TimeFrom.Local().Format(timeLayout), r.TimeUntil.Local().Format(timeLayout), mine)
			}
			return w.Flush()
		},
	}
}

func newReserveCommand(appFn func() *app) *cobra.Command {
	var from, until string
	var duration time.Duration
	cmd := &cobra.Command{
		Use:   "reserve CHARGER_ID",
		Short: "Reserve a time slot on a charger",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFn()
			ctx := cmd.Context()
			chargerID, err := parseID("charger id", args[0])
			if err != nil {
				return err
			}
			start, err := parseTime(from)
			if err != nil {
				return err
			}
			end := start.Add(duration)
			if until != "" {
				if end, err = parseTime(until); err != nil {
					return err
				}
			}
			if err := a.requireSession(ctx); err != nil {
				return err
			}

			if err := a.chargers.Reserve(ctx, chargerID, start, end); err != nil {
				return friendly(err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Success!")
			return nil
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "start, RFC 3339 or \"YYYY-MM-DD HH:MM\" local time")
	cmd.Flags().StringVar(&until, "until", "", "end, same formats as --from")
	cmd.Flags().DurationVar(&duration, "for", time.Hour, "length of the slot when --until is not given")
	_ = cmd.MarkFlagRequired("from")
	return cmd
}

func newCancelCommand(appFn func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel CHARGER_ID RESERVATION_ID",
		Short: "Cancel one of your reservations",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFn()
			ctx := cmd.Context()
			chargerID, err := parseID("charger id", args[0])
			if err != nil {
				return err
			}
			reservationID, err := parseID("reservation id", args[1])
			if err != nil {
				return err
			}
			if err := a.requireSession(ctx); err != nil {
				return err
			}

			if err := a.chargers.CancelByID(ctx, chargerID, reservationID); err != nil {
				return friendly(err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Reservation cancelled")
			return nil
		},
	}
}

func newKeepaliveCommand(appFn func() *app) *cobra.Command {
	var metricsAddr string
	cmd := &cobra.Command{
		Use:   "keepalive",
		Short: "Keep the session renewed until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := appFn()
			displayAppname(a.cfg.GetAppName())

			if metricsAddr == "" {
				metricsAddr = a.cfg.GetMetricsAddr()
			}

			unsubscribe := a.session.Subscribe(func(c session.PhaseChange) {
				a.logger.Info().Str("from", c.From.String()).Str("to", c.To.String()).Msg("session phase changed")
			})
			defer unsubscribe()

			g, ctx := errgroup.WithContext(cmd.Context())
			g.Go(func() error {
				err := a.session.Run(ctx)
				if errors.Is(err, context.Canceled) {
					return nil
				}
				return err
			})
			if metricsAddr != "" {
				server := &http.Server{Addr: metricsAddr, Handler: metricsHandler(a), ReadHeaderTimeout: 5 * time.Second}
				g.Go(func() error { return listenAndServe(a, server) })
				g.Go(func() error {
					<-ctx.Done()
					return shutdown(server)
				})
			}

			a.logger.Info().Dur("interval", a.session.Timings().RefreshInterval).Msg("keeping session alive")
			return g.Wait()
		},
	}
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve /metrics on this address (overrides metrics.addr)")
	return cmd
}

func metricsHandler(a *app) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		a.session.Nudge()
		fmt.Fprintln(w, a.session.EvaluatePhase(r.Context()))
	})
	return mux
}

func listenAndServe(a *app, server *http.Server) error {
	a.logger.Info().Str("addr", server.Addr).Msg("metrics listening")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func newVerifyCommand(appFn func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Check the stored credentials against the service signing key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := appFn()
			ctx := cmd.Context()
			if err := a.requireSession(ctx); err != nil {
				return err
			}

			key, err := a.client.SigningKey(ctx)
			if err != nil {
				return friendly(err)
			}
			verifier, err := token.NewVerifier(key)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Signing algorithm: %s\n", verifier.Algorithm())
			failed := false
			for _, k := range []string{store.KeyAccessToken, store.KeyRefreshToken} {
				raw, err := a.store.Get(ctx, k)
				if err != nil {
					fmt.Fprintf(out, "%-13s absent\n", k+":")
					continue
				}
				claims, err := verifier.Verify(ctx, raw)
				if err != nil {
					failed = true
					fmt.Fprintf(out, "%-13s %v\n", k+":", err)
					continue
				}
				fmt.Fprintf(out, "%-13s ok (user %s)\n", k+":", claims.UserUID)
			}
			if failed {
				return errors.New("credential verification failed")
			}
			return nil
		},
	}
}

func parseID(what, s string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s %q", what, s)
	}
	return id, nil
}

func parseTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation(timeLayout, s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q, use RFC 3339 or %q", s, timeLayout)
	}
	return t, nil
}
