package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/five82/smashtrack/internal/analysis"
	"github.com/five82/smashtrack/internal/gateway"
	"github.com/five82/smashtrack/internal/history"
	"github.com/five82/smashtrack/internal/logtail"
	"github.com/five82/smashtrack/internal/session"
	"github.com/five82/smashtrack/internal/upload"
)

func runLogin(ctx context.Context, d *Deps, args []string, out io.Writer) error {
	fs := newFlagSet("login")
	username := fs.String("u", "", "username")
	password := fs.String("p", "", "password")
	if err := fs.Parse(args); err != nil {
		return err
	}
	user, err := d.Session.Login(ctx, session.Credentials{Username: *username, Password: *password})
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Signed in as %s\n", user.DisplayName())
	return nil
}

func runRegister(ctx context.Context, d *Deps, args []string, out io.Writer) error {
	fs := newFlagSet("register")
	username := fs.String("u", "", "username")
	password := fs.String("p", "", "password")
	nickname := fs.String("nickname", "", "display name (optional)")
	email := fs.String("email", "", "email address (optional)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	user, err := d.Session.Register(ctx, session.Registration{
		Username: *username,
		Password: *password,
		Nickname: *nickname,
		Email:    *email,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Welcome, %s\n", user.DisplayName())
	return nil
}

func runLogout(ctx context.Context, d *Deps, _ []string, out io.Writer) error {
	if err := d.Session.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(out, "Signed out")
	return nil
}

func runProfile(ctx context.Context, d *Deps, _ []string, out io.Writer) error {
	if err := requireSession(d, session.RouteProfile); err != nil {
		return err
	}
	user, err := d.Session.Profile(ctx)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Username\t%s\n", user.Username)
	if user.Nickname != "" {
		fmt.Fprintf(tw, "Nickname\t%s\n", user.Nickname)
	}
	if user.Email != "" {
		fmt.Fprintf(tw, "Email\t%s\n", user.Email)
	}
	fmt.Fprintf(tw, "Points\t%d\n", user.Points)
	if user.CreatedAt != "" {
		fmt.Fprintf(tw, "Member since\t%s\n", user.CreatedAt)
	}
	return tw.Flush()
}

func runAnalyze(ctx context.Context, d *Deps, args []string, out io.Writer) error {
	fs := newFlagSet("analyze")
	trimFlag := fs.String("trim", "", "analyze only start:end seconds of the clip")
	mediaID := fs.String("media", "", "re-analyze an uploaded media id instead of uploading")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireSession(d, session.RouteUpload); err != nil {
		return err
	}

	var (
		ref upload.MediaReference
		res analysis.Result
		err error
	)
	if id := strings.TrimSpace(*mediaID); id != "" {
		ref = upload.MediaReference{ID: id}
		res, err = d.Runner.Analyze(ctx, ref)
	} else {
		if fs.NArg() != 1 {
			return gateway.Validation("usage: smashtrack analyze [-trim start:end] <video>")
		}
		trim, perr := upload.ParseTrim(*trimFlag)
		if perr != nil {
			return perr
		}
		ref, res, err = d.Runner.Run(ctx, upload.File{Path: fs.Arg(0)}, trim)
	}
	if err != nil {
		if ref.ID != "" && !errors.Is(err, gateway.ErrUnauthorized) && ctx.Err() == nil {
			return fmt.Errorf("analyze: %w (retry with: smashtrack analyze -media %s)", err, ref.ID)
		}
		return fmt.Errorf("analyze: %w", err)
	}
	if len(res.Attempts) > 1 {
		fmt.Fprintln(out, "Provider overloaded, used the degraded analysis.")
	}
	return writeReport(out, res.Report)
}

func runReport(ctx context.Context, d *Deps, args []string, out io.Writer) error {
	fs := newFlagSet("report")
	share := fs.Bool("share", false, "print a shareable summary")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireSession(d, session.RouteReport); err != nil {
		return err
	}
	report, err := d.Analysis.Recall(ctx, d.Fetcher, fs.Arg(0))
	if err != nil {
		return fmt.Errorf("report: %w", err)
	}
	if *share {
		fmt.Fprintln(out, ShareText(report))
		return nil
	}
	return writeReport(out, report)
}

func runHistory(ctx context.Context, d *Deps, args []string, out io.Writer) error {
	q := history.DefaultQuery()
	fs := newFlagSet("history")
	fs.IntVar(&q.Page, "page", q.Page, "page number")
	fs.IntVar(&q.PageSize, "size", q.PageSize, "rows per page (max 50)")
	fs.StringVar(&q.SortBy, "sort", q.SortBy, "analyzed_at, speed or score")
	fs.StringVar(&q.Order, "order", q.Order, "asc or desc")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireSession(d, session.RouteHistory); err != nil {
		return err
	}
	page, err := d.History.List(ctx, q)
	if err != nil {
		return fmt.Errorf("history: %w", err)
	}
	d.HistoryStore.Update(&page, nil)
	return writeHistory(out, page, d.HistoryStore.Snapshot().Stats)
}

func runLogs(_ context.Context, d *Deps, args []string, out io.Writer) error {
	fs := newFlagSet("logs")
	n := fs.Int("n", 200, "number of lines (0 for all)")
	raw := fs.Bool("raw", false, "print JSON records unformatted")
	if err := fs.Parse(args); err != nil {
		return err
	}
	lines, err := logtail.Read(d.Config.LogPath, *n)
	if err != nil {
		return err
	}
	if !*raw {
		lines = logtail.FormatLines(lines)
	}
	for _, line := range lines {
		fmt.Fprintln(out, line)
	}
	return nil
}
