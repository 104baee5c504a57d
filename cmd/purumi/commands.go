package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/purumi/purumi/internal/bootstrap"
	domainauth "github.com/purumi/purumi/internal/domain/auth"
	apperrors "github.com/purumi/purumi/internal/errors"
	"github.com/purumi/purumi/internal/migrate"
)

var errNoDatabase = errors.New("this command needs the database (set DB_ENABLED=true)")

func newFlagSet(cc *commandContext, name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(cc.Err)
	return fs
}

func parseFlags(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return errors.Join(errUsage, err)
	}
	return nil
}

// fail prints the user-facing message of err and marks it as reported.
func fail(cc *commandContext, err error, fallback string) error {
	_ = writef(cc.Err, "error: %s\n", apperrors.UserMessage(err, fallback))
	cc.Logger.DebugContext(cc.Ctx, "command error", "error", err)
	return errors.Join(errUsage, err)
}

func printState(cc *commandContext) error {
	st := cc.App.Controller.State()
	if err := writef(cc.Out, "identity: %s\n", st.Identity.Kind()); err != nil {
		return err
	}
	switch {
	case st.Identity.IsGuest():
		if err := writef(cc.Out, "guest id: %s\n", st.Identity.GuestID()); err != nil {
			return err
		}
	case st.Identity.IsAuthenticated():
		u := st.User()
		if err := writef(cc.Out, "user: %s (%s)\n", u.Email, u.ID); err != nil {
			return err
		}
	}
	return writef(cc.Out, "screen: %s\n", cc.Nav.CurrentRoute().Path())
}

func runStatus(cc *commandContext, args []string) error {
	fs := newFlagSet(cc, "status")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if err := printState(cc); err != nil {
		return err
	}
	if d := cc.App.Drafts.Get(cc.Ctx); d != nil {
		return writef(cc.Out, "draft: %s at %s\n", d.ServiceID, d.ScheduledFor)
	}
	return nil
}

func runSignIn(cc *commandContext, args []string) error {
	fs := newFlagSet(cc, "sign-in")
	email := fs.String("email", "", "Account email")
	password := fs.String("password", "", "Account password")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if err := cc.App.Controller.SignIn(cc.Ctx, *email, *password); err != nil {
		return fail(cc, err, apperrors.MsgSignInFailed)
	}
	return printState(cc)
}

func runSignUp(cc *commandContext, args []string) error {
	fs := newFlagSet(cc, "sign-up")
	email := fs.String("email", "", "Account email")
	password := fs.String("password", "", "Account password")
	name := fs.String("name", "", "Display name")
	phone := fs.String("phone", "", "Phone number")
	birth := fs.String("birth-date", "", "Birth date (YYYY-MM-DD)")
	gender := fs.String("gender", "", "Gender")
	marketing := fs.Bool("marketing", false, "Agree to marketing messages")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	profile := &domainauth.Profile{
		Name:      strings.TrimSpace(*name),
		Phone:     strings.TrimSpace(*phone),
		BirthDate: strings.TrimSpace(*birth),
		Gender:    strings.TrimSpace(*gender),
		Marketing: *marketing,
	}
	if err := cc.App.Controller.SignUp(cc.Ctx, *email, *password, profile); err != nil {
		return fail(cc, err, apperrors.MsgSignUpFailed)
	}
	if cc.App.DB == nil {
		cc.Logger.InfoContext(cc.Ctx, "profile not stored, database disabled")
	}
	if err := writef(cc.Out, "account created\n"); err != nil {
		return err
	}
	return printState(cc)
}

func runSignOut(cc *commandContext, args []string) error {
	fs := newFlagSet(cc, "sign-out")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	cc.App.Controller.SignOut(cc.Ctx)
	return printState(cc)
}

func runGuest(cc *commandContext, args []string) error {
	fs := newFlagSet(cc, "guest")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if _, err := cc.App.Controller.ContinueAsGuest(cc.Ctx); err != nil {
		return fail(cc, err, apperrors.MsgGuestFailed)
	}
	return printState(cc)
}

// runGuard evaluates the guard for a route against the current identity
// without navigating.
func runGuard(cc *commandContext, args []string) error {
	fs := newFlagSet(cc, "guard")
	path := fs.String("path", "", "Route to evaluate (defaults to the current screen)")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	route := cc.Nav.CurrentRoute()
	if *path != "" {
		route = cc.Nav.resolve(*path)
	}

	st := cc.App.Controller.State()
	d := cc.Config.Guard.Guard().Decide(st.Identity, route)
	target := "stay"
	if d.Redirects() {
		target = d.Redirect.Href()
	}
	return writef(cc.Out, "identity=%s route=%s rule=%s redirect=%s\n", st.Identity.Kind(), route.Path(), d.Rule, target)
}

func videoFlag(cc *commandContext, name string, args []string) (string, error) {
	fs := newFlagSet(cc, name)
	id := fs.String("video", "", "Video id")
	if err := parseFlags(fs, args); err != nil {
		return "", err
	}
	if cc.App.Videos == nil {
		return "", fail(cc, errNoDatabase, errNoDatabase.Error())
	}
	return *id, nil
}

func runView(cc *commandContext, args []string) error {
	id, err := videoFlag(cc, "view", args)
	if err != nil {
		return err
	}
	if err := cc.App.Videos.RecordView(cc.Ctx, id); err != nil {
		return fail(cc, err, "조회수 기록에 실패했습니다.")
	}
	return writef(cc.Out, "view recorded\n")
}

func runLike(cc *commandContext, args []string) error {
	id, err := videoFlag(cc, "like", args)
	if err != nil {
		return err
	}
	res, err := cc.App.Videos.ToggleLike(cc.Ctx, id)
	if err != nil {
		return fail(cc, err, "좋아요 처리에 실패했습니다.")
	}
	return writef(cc.Out, "liked=%t likes=%d\n", res.Liked, res.LikeCount)
}

func runStats(cc *commandContext, args []string) error {
	id, err := videoFlag(cc, "stats", args)
	if err != nil {
		return err
	}
	stats, err := cc.App.Videos.Stats(cc.Ctx, id)
	if err != nil {
		return fail(cc, err, "영상 정보를 불러오지 못했습니다.")
	}
	liked, err := cc.App.Videos.IsLiked(cc.Ctx, id)
	if err != nil {
		return fail(cc, err, "영상 정보를 불러오지 못했습니다.")
	}
	return writef(cc.Out, "%s %q views=%d likes=%d liked=%t\n", stats.ID, stats.Title, stats.Views, stats.Likes, liked)
}

func reservationsOrFail(cc *commandContext) error {
	if cc.App.Reservations == nil {
		return fail(cc, errNoDatabase, errNoDatabase.Error())
	}
	return nil
}

func runServices(cc *commandContext, args []string) error {
	fs := newFlagSet(cc, "services")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if err := reservationsOrFail(cc); err != nil {
		return err
	}
	services, err := cc.App.Reservations.Services(cc.Ctx)
	if err != nil {
		return fail(cc, err, "서비스 목록을 불러오지 못했습니다.")
	}
	for _, s := range services {
		if err := writef(cc.Out, "%s\t%s\t%dmin\t%s\n", s.ID, s.Name, s.DurationMin, s.Description); err != nil {
			return err
		}
	}
	return nil
}

// runReserve books the flags, or the stored draft when -service is empty.
func runReserve(cc *commandContext, args []string) error {
	fs := newFlagSet(cc, "reserve")
	serviceID := fs.String("service", "", "Service id (defaults to the stored draft)")
	at := fs.String("at", "", "Scheduled time (RFC 3339)")
	note := fs.String("note", "", "Note for the clinic")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if err := reservationsOrFail(cc); err != nil {
		return err
	}

	var (
		res *domainauth.Reservation
		err error
	)
	if *serviceID == "" {
		res, err = cc.App.Reservations.CreateFromDraft(cc.Ctx)
	} else {
		res, err = cc.App.Reservations.Create(cc.Ctx, domainauth.ReservationDraft{ServiceID: *serviceID, ScheduledFor: *at, Note: *note})
	}
	if err != nil {
		return fail(cc, err, "예약에 실패했습니다.")
	}
	return writef(cc.Out, "reserved %s %s at %s (%s)\n", res.ID, res.ServiceID, res.ScheduledFor.Format(time.RFC3339), res.Status)
}

func runReservations(cc *commandContext, args []string) error {
	fs := newFlagSet(cc, "reservations")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if err := reservationsOrFail(cc); err != nil {
		return err
	}
	list, err := cc.App.Reservations.Mine(cc.Ctx)
	if err != nil {
		return fail(cc, err, "예약 목록을 불러오지 못했습니다.")
	}
	if len(list) == 0 {
		return writef(cc.Out, "no reservations\n")
	}
	for _, r := range list {
		if err := writef(cc.Out, "%s\t%s\t%s\t%s\t%q\n", r.ID, r.ServiceID, r.ScheduledFor.Format(time.RFC3339), r.Status, r.Note); err != nil {
			return err
		}
	}
	return nil
}

func runDraft(cc *commandContext, args []string) error {
	if len(args) == 0 {
		_ = writef(cc.Err, "usage: purumi draft save|get|clear [flags]\n")
		return errUsage
	}
	switch args[0] {
	case "save":
		fs := newFlagSet(cc, "draft save")
		serviceID := fs.String("service", "", "Service id")
		at := fs.String("at", "", "Scheduled time (RFC 3339)")
		note := fs.String("note", "", "Note for the clinic")
		if err := parseFlags(fs, args[1:]); err != nil {
			return err
		}
		err := cc.App.Drafts.Save(cc.Ctx, domainauth.ReservationDraft{ServiceID: *serviceID, ScheduledFor: *at, Note: *note})
		if err != nil {
			return fail(cc, err, "예약 정보를 저장하지 못했습니다.")
		}
		return writef(cc.Out, "draft saved\n")
	case "get":
		d := cc.App.Drafts.Get(cc.Ctx)
		if d == nil {
			return writef(cc.Out, "no draft\n")
		}
		return writef(cc.Out, "service=%s at=%s note=%q\n", d.ServiceID, d.ScheduledFor, d.Note)
	case "clear":
		if err := cc.App.Drafts.Clear(cc.Ctx); err != nil {
			return fail(cc, err, "예약 정보를 삭제하지 못했습니다.")
		}
		return writef(cc.Out, "draft cleared\n")
	default:
		_ = writef(cc.Err, "unknown draft action %q\n", args[0])
		return errUsage
	}
}

func runReset(cc *commandContext, args []string) error {
	fs := newFlagSet(cc, "reset")
	yes := fs.Bool("yes", false, "Confirm clearing the session, guest id and draft")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if !*yes {
		_ = writef(cc.Err, "reset clears all device storage; pass -yes to confirm\n")
		return errUsage
	}
	if err := cc.App.Device.ClearAll(cc.Ctx); err != nil {
		return fmt.Errorf("clear device storage: %w", err)
	}
	return writef(cc.Out, "device storage cleared\n")
}

func runMigrate(cc *commandContext, args []string) error {
	fs := newFlagSet(cc, "migrate")
	timeout := fs.Duration("timeout", 2*time.Minute, "Migration timeout")
	status := fs.Bool("status", false, "List pending migrations without applying them")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if !cc.Config.Postgres.Enabled {
		return fail(cc, errNoDatabase, errNoDatabase.Error())
	}

	ctx, cancel := context.WithTimeout(cc.Ctx, *timeout)
	defer cancel()

	db, err := bootstrap.ConnectDB(ctx, cc.Config.Postgres, cc.Logger)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	if *status {
		pending, err := migrate.Pending(ctx, db)
		if err != nil {
			return fmt.Errorf("list pending migrations: %w", err)
		}
		if len(pending) == 0 {
			return writef(cc.Out, "database is up to date\n")
		}
		for _, v := range pending {
			if err := writef(cc.Out, "pending %s\n", v); err != nil {
				return err
			}
		}
		return nil
	}

	if err := bootstrap.RunMigrations(ctx, db, cc.Logger); err != nil {
		return err
	}
	return writef(cc.Out, "migrations applied\n")
}
