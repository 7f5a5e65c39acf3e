// Command taskctl is a terminal client for the task tracker.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/chepyr/taskboard/internal/client"
	"github.com/chepyr/taskboard/internal/dashboard"
	"github.com/chepyr/taskboard/internal/services"
	"github.com/sirupsen/logrus"
)

const (
	defaultServer  = "http://localhost:5000"
	redialMinDelay = time.Second
	redialMaxDelay = 30 * time.Second
	commandTimeout = 15 * time.Second
)

const usage = `usage: taskctl [-server URL] [-session FILE] [-v] <command> [flags]

commands:
  register  -name N -email E -password P
  login     -email E -password P
  logout
  users
  list      [-status S] [-priority P] [-sort-due]
  create    -title T -description D -due YYYY-MM-DD [-priority P] [-assign USER_ID]
  update    ID [-title T] [-description D] [-due YYYY-MM-DD] [-priority P] [-status S] [-assign USER_ID]
  delete    ID
  toggle    ID
  watch     [-status S] [-priority P] [-sort-due]
`

type app struct {
	client      *client.Client
	sessionPath string
	session     *client.Session
	out         io.Writer
	log         *logrus.Logger
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	global := flag.NewFlagSet("taskctl", flag.ContinueOnError)
	global.SetOutput(stderr)
	global.Usage = func() { fmt.Fprint(stderr, usage) }
	server := global.String("server", envOr("TASKCTL_SERVER", defaultServer), "API base URL")
	sessionPath := global.String("session", "", "session file (default ~/.taskctl/session.json)")
	verbose := global.Bool("v", false, "debug logging")
	if err := global.Parse(args); err != nil {
		return 2
	}
	if global.NArg() == 0 {
		global.Usage()
		return 2
	}

	log := logrus.New()
	log.SetOutput(stderr)
	log.SetLevel(logrus.WarnLevel)
	if *verbose {
		log.SetLevel(logrus.DebugLevel)
	}

	a := &app{out: stdout, log: log, sessionPath: *sessionPath}
	if a.sessionPath == "" {
		p, err := client.DefaultSessionPath()
		if err != nil {
			log.Errorf("session path: %v", err)
			return 1
		}
		a.sessionPath = p
	}
	if s, err := client.LoadSession(a.sessionPath); err == nil {
		a.session = s
	} else if !errors.Is(err, os.ErrNotExist) {
		log.Warnf("ignoring session: %v", err)
	}

	opts := []client.Option{client.WithLogger(log)}
	if a.session != nil {
		opts = append(opts, client.WithToken(a.session.Token))
	}
	a.client = client.New(*server, opts...)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cmd, rest := global.Arg(0), global.Args()[1:]
	var err error
	switch cmd {
	case "register":
		err = a.register(ctx, rest)
	case "login":
		err = a.login(ctx, rest)
	case "logout":
		err = a.logout()
	case "users":
		err = a.users(ctx)
	case "list":
		err = a.list(ctx, rest)
	case "create":
		err = a.create(ctx, rest)
	case "update":
		err = a.update(ctx, rest)
	case "delete":
		err = a.remove(ctx, rest)
	case "toggle":
		err = a.toggle(ctx, rest)
	case "watch":
		err = a.watch(ctx, rest)
	default:
		fmt.Fprintf(stderr, "unknown command %q\n", cmd)
		global.Usage()
		return 2
	}

	switch {
	case err == nil:
		return 0
	case errors.Is(err, errUsage):
		fmt.Fprintln(stderr, err)
		return 2
	default:
		fmt.Fprintln(stderr, "error:", err)
		return 1
	}
}

var errUsage = errors.New("invalid usage")

func usageErr(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errUsage, fmt.Sprintf(format, args...))
}

func (a *app) newFlags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func (a *app) requireSession() error {
	if a.session == nil {
		return errors.New("not logged in, run taskctl login first")
	}
	return nil
}

func (a *app) register(ctx context.Context, args []string) error {
	fs := a.newFlags("register")
	name := fs.String("name", "", "display name")
	email := fs.String("email", "", "email")
	password := fs.String("password", "", "password")
	if err := fs.Parse(args); err != nil {
		return usageErr("register: %v", err)
	}

	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()
	user, err := a.client.Register(ctx, *name, *email, *password)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Registered %s <%s> (%s)\n", user.Name, user.Email, user.ID)
	return nil
}

func (a *app) login(ctx context.Context, args []string) error {
	fs := a.newFlags("login")
	email := fs.String("email", "", "email")
	password := fs.String("password", "", "password")
	if err := fs.Parse(args); err != nil {
		return usageErr("login: %v", err)
	}

	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()
	res, err := a.client.Login(ctx, *email, *password)
	if err != nil {
		return err
	}
	session := &client.Session{Token: res.Token, UserID: res.User.ID, Name: res.User.Name, Email: res.User.Email}
	if err := session.Save(a.sessionPath); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	a.log.WithField("path", a.sessionPath).Debug("session saved")
	fmt.Fprintf(a.out, "Logged in as %s\n", res.User.Name)
	return nil
}

func (a *app) logout() error {
	if err := client.ClearSession(a.sessionPath); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Logged out")
	return nil
}

func (a *app) users(ctx context.Context) error {
	if err := a.requireSession(); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()
	users, err := a.client.ListUsers(ctx)
	if err != nil {
		return err
	}
	for _, u := range users {
		fmt.Fprintf(a.out, "%s\t%s\t%s\n", u.ID, u.Name, u.Email)
	}
	return nil
}

func filterFlags(fs *flag.FlagSet) *dashboard.Filter {
	f := &dashboard.Filter{}
	fs.StringVar(&f.Status, "status", dashboard.All, "status filter")
	fs.StringVar(&f.Priority, "priority", dashboard.All, "priority filter")
	fs.BoolVar(&f.SortByDueDate, "sort-due", false, "sort by due date")
	return f
}

func (a *app) list(ctx context.Context, args []string) error {
	fs := a.newFlags("list")
	filter := filterFlags(fs)
	if err := fs.Parse(args); err != nil {
		return usageErr("list: %v", err)
	}
	if err := a.requireSession(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()
	tasks, err := a.client.ListTasks(ctx)
	if err != nil {
		return err
	}
	return dashboard.Render(a.out, filter.Apply(tasks), a.session.UserID, time.Now())
}

func (a *app) create(ctx context.Context, args []string) error {
	form := dashboard.NewCreateForm()
	fs := a.newFlags("create")
	fs.StringVar(&form.Title, "title", "", "title")
	fs.StringVar(&form.Description, "description", "", "description")
	fs.StringVar(&form.DueDate, "due", "", "due date")
	fs.StringVar(&form.Priority, "priority", form.Priority, "priority")
	fs.StringVar(&form.AssignedToID, "assign", "", "assignee user id")
	if err := fs.Parse(args); err != nil {
		return usageErr("create: %v", err)
	}
	if err := a.requireSession(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()
	task, err := a.client.CreateTask(ctx, form.Input())
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Created task %s\n", task.ID)
	return nil
}

// taskID accepts the id before or after the flags.
func taskID(fs *flag.FlagSet, args []string) (string, error) {
	var id string
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		id, args = args[0], args[1:]
	}
	if err := fs.Parse(args); err != nil {
		return "", usageErr("%s: %v", fs.Name(), err)
	}
	if id == "" {
		id = fs.Arg(0)
	}
	if id == "" {
		return "", usageErr("%s: task id required", fs.Name())
	}
	return id, nil
}

func (a *app) update(ctx context.Context, args []string) error {
	fs := a.newFlags("update")
	title := fs.String("title", "", "title")
	description := fs.String("description", "", "description")
	due := fs.String("due", "", "due date")
	priority := fs.String("priority", "", "priority")
	status := fs.String("status", "", "status")
	assign := fs.String("assign", "", "assignee user id, empty to unassign")
	id, err := taskID(fs, args)
	if err != nil {
		return err
	}
	if err := a.requireSession(); err != nil {
		return err
	}

	var in services.UpdateTaskInput
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "title":
			in.Title = title
		case "description":
			in.Description = description
		case "due":
			in.DueDate = due
		case "priority":
			in.Priority = priority
		case "status":
			in.Status = status
		case "assign":
			in.AssignedToID = services.SetID(*assign)
		}
	})

	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()
	task, err := a.client.UpdateTask(ctx, id, in)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Updated task %s\n", task.ID)
	return nil
}

func (a *app) remove(ctx context.Context, args []string) error {
	id, err := taskID(a.newFlags("delete"), args)
	if err != nil {
		return err
	}
	if err := a.requireSession(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()
	if err := a.client.DeleteTask(ctx, id); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Task deleted")
	return nil
}

func (a *app) toggle(ctx context.Context, args []string) error {
	id, err := taskID(a.newFlags("toggle"), args)
	if err != nil {
		return err
	}
	if err := a.requireSession(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()
	task, err := a.client.ToggleStatus(ctx, id)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Task %s is now %s\n", task.ID, task.Status)
	return nil
}

// watch renders the board, then re-renders on every change signal until
// interrupted. A dropped socket is re-dialed with backoff.
func (a *app) watch(ctx context.Context, args []string) error {
	fs := a.newFlags("watch")
	filter := filterFlags(fs)
	if err := fs.Parse(args); err != nil {
		return usageErr("watch: %v", err)
	}
	if err := a.requireSession(); err != nil {
		return err
	}

	board := dashboard.NewBoard(a.client)
	changes := make(chan struct{}, 1)
	go a.subscribeLoop(ctx, changes)

	for {
		if err := a.renderBoard(ctx, board, *filter); err != nil {
			a.log.WithError(err).Warn("refresh failed")
		}
		select {
		case <-ctx.Done():
			return nil
		case <-changes:
			board.Invalidate()
		}
	}
}

func (a *app) renderBoard(ctx context.Context, board *dashboard.Board, filter dashboard.Filter) error {
	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()
	tasks, err := board.Tasks(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "\n== %s ==\n", time.Now().Format("15:04:05"))
	return dashboard.Render(a.out, filter.Apply(tasks), a.session.UserID, time.Now())
}

func (a *app) subscribeLoop(ctx context.Context, changes chan<- struct{}) {
	delay := redialMinDelay
	for ctx.Err() == nil {
		connected := time.Now()
		err := a.client.Subscribe(ctx, a.session.UserID, func() {
			select {
			case changes <- struct{}{}:
			default:
			}
		})
		if ctx.Err() != nil {
			return
		}
		if time.Since(connected) > redialMaxDelay {
			delay = redialMinDelay
		}
		a.log.WithError(err).Warnf("signal connection lost, retrying in %s", delay)

		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
		// A missed signal while disconnected still needs a refetch.
		select {
		case changes <- struct{}{}:
		default:
		}
		delay = min(delay*2, redialMaxDelay)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
