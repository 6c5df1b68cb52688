package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"tutorfinder/internal/config"
	"tutorfinder/internal/directory"
	"tutorfinder/internal/logger"
	"tutorfinder/internal/models"
	"tutorfinder/pkg/geo"
	"tutorfinder/pkg/rabbitmq"
)

const usage = `usage: finder [flags] <command> [args]

commands:
  list                      providers matching --service, --min-rating and --radius around --lat/--lng
  search <query>            providers whose name or service contains query
  show <provider-id>        provider details and reviews
  geojson                   the filtered map as GeoJSON
  login | register          sign in with --username/--password (register also takes --role)
  logout                    forget the stored session
  reset-password            set --password for --username
  review <provider-id>      review with --rating and --text as the signed-in user
  save <file.json>          create or update a listing from a JSON draft
  delete <provider-id>      delete a listing
  stats                     admin counts, or the --type users|providers list
  stats-delete              admin delete of --type record --id
  watch                     refresh on every directory event from RabbitMQ
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, "finder:", err)
		os.Exit(1)
	}
}

func newFlagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet("finder", pflag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprint(os.Stderr, usage, "\nflags:\n", fs.FlagUsages())
	}

	fs.String("api-url", "http://localhost:8080", "directory API base URL")
	fs.String("session-dir", defaultSessionDir(), "directory holding the session file")
	fs.Duration("timeout", 10*time.Second, "request timeout")
	fs.String("log-level", "warn", "log level")
	fs.String("rabbitmq-url", "", "RabbitMQ URL for watch")
	fs.String("rabbitmq-exchange", "directory", "exchange directory events are published to")

	fs.String("service", directory.AllServices, "service filter")
	fs.Float64("min-rating", 0, "minimum rating")
	fs.Float64("radius", directory.DefaultRadiusKm, "search radius in km")
	fs.Float64("lat", directory.DefaultAnchor.Lat, "anchor latitude")
	fs.Float64("lng", directory.DefaultAnchor.Lng, "anchor longitude")

	fs.String("username", "", "account username")
	fs.String("password", "", "account password")
	fs.String("role", string(models.RoleUser), "role to register with (user or provider)")
	fs.Int("rating", 0, "review rating 1-5")
	fs.String("text", "", "review text")
	fs.String("type", "", "admin record type (users or providers)")
	fs.String("id", "", "admin record id")
	return fs
}

func defaultSessionDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "."
	}
	return filepath.Join(dir, "tutorfinder")
}

// loadSettings binds the flags into a viper instance; FINDER_* variables
// fill in whatever was not set on the command line.
func loadSettings(fs *pflag.FlagSet, args []string) (*viper.Viper, error) {
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	v := viper.New()
	v.SetEnvPrefix("FINDER")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(fs); err != nil {
		return nil, fmt.Errorf("bind flags: %w", err)
	}
	return v, nil
}

type cli struct {
	v          *viper.Viper
	out        io.Writer
	client     *directory.Client
	surface    *directory.RecordingSurface
	mapSync    *directory.MapSync
	controller *directory.Controller
}

func run(ctx context.Context, args []string, out io.Writer) error {
	fs := newFlagSet()
	v, err := loadSettings(fs, args)
	if err != nil {
		return err
	}
	logger.Configure(logrus.StandardLogger(), config.LogConfig{Level: v.GetString("log-level")}, os.Stderr)

	rest := fs.Args()
	if len(rest) == 0 {
		fs.Usage()
		return pflag.ErrHelp
	}

	c, err := newCLI(v, out)
	if err != nil {
		return err
	}
	return c.exec(ctx, rest[0], rest[1:])
}

func newCLI(v *viper.Viper, out io.Writer) (*cli, error) {
	client := directory.NewClient(v.GetString("api-url"), v.GetDuration("timeout"))
	surface := directory.NewRecordingSurface()
	mapSync := directory.NewMapSync(surface)
	controller, err := directory.NewController(client, directory.NewStore(client), mapSync,
		directory.NewSessionStore(v.GetString("session-dir")))
	if err != nil {
		return nil, err
	}
	return &cli{v: v, out: out, client: client, surface: surface, mapSync: mapSync, controller: controller}, nil
}

func (c *cli) exec(ctx context.Context, command string, args []string) error {
	switch command {
	case "list":
		if err := c.filtered(ctx); err != nil {
			return err
		}
		c.printProviders(c.controller.State())
		return nil
	case "search":
		if len(args) == 0 {
			return errors.New("search needs a query")
		}
		if err := c.controller.Dispatch(ctx, directory.Refresh{}); err != nil {
			return err
		}
		if err := c.controller.Dispatch(ctx, directory.SearchText{Query: strings.Join(args, " ")}); err != nil {
			return err
		}
		c.printProviders(c.controller.State())
		return nil
	case "show":
		id, err := oneArg("show", args)
		if err != nil {
			return err
		}
		if err := c.controller.Dispatch(ctx, directory.Refresh{}); err != nil {
			return err
		}
		if err := c.controller.Dispatch(ctx, directory.ShowDetails{ProviderID: id}); err != nil {
			return err
		}
		return c.printDetails(id)
	case "geojson":
		if err := c.filtered(ctx); err != nil {
			return err
		}
		data, err := c.mapSync.GeoJSON()
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(c.out, string(data))
		return err
	case "login":
		if err := c.controller.Dispatch(ctx, directory.Login{Username: c.v.GetString("username"), Password: c.v.GetString("password")}); err != nil {
			return err
		}
		return c.printSession()
	case "register":
		cmd := directory.Register{
			Username: c.v.GetString("username"),
			Password: c.v.GetString("password"),
			Role:     models.Role(c.v.GetString("role")),
		}
		if err := c.controller.Dispatch(ctx, cmd); err != nil {
			return err
		}
		return c.printSession()
	case "logout":
		return c.controller.Dispatch(ctx, directory.Logout{})
	case "reset-password":
		if err := c.controller.Dispatch(ctx, directory.ResetPassword{Username: c.v.GetString("username"), NewPassword: c.v.GetString("password")}); err != nil {
			return err
		}
		_, err := fmt.Fprintln(c.out, "password updated")
		return err
	case "review":
		id, err := oneArg("review", args)
		if err != nil {
			return err
		}
		if err := c.controller.Dispatch(ctx, directory.Refresh{}); err != nil {
			return err
		}
		if err := c.controller.Dispatch(ctx, directory.ShowDetails{ProviderID: id}); err != nil {
			return err
		}
		if err := c.controller.Dispatch(ctx, directory.SubmitReview{Rating: c.v.GetInt("rating"), Text: c.v.GetString("text")}); err != nil {
			return err
		}
		return c.printDetails(id)
	case "save":
		path, err := oneArg("save", args)
		if err != nil {
			return err
		}
		draft, err := readDraft(path)
		if err != nil {
			return err
		}
		if err := c.controller.Dispatch(ctx, directory.Refresh{}); err != nil {
			return err
		}
		return c.controller.Dispatch(ctx, directory.SaveProvider{Draft: draft})
	case "delete":
		id, err := oneArg("delete", args)
		if err != nil {
			return err
		}
		if err := c.controller.Dispatch(ctx, directory.Refresh{}); err != nil {
			return err
		}
		return c.controller.Dispatch(ctx, directory.DeleteProvider{ID: id})
	case "stats":
		return c.stats(ctx)
	case "stats-delete":
		if err := c.client.DeleteRecord(ctx, c.v.GetString("type"), c.v.GetString("id")); err != nil {
			return err
		}
		_, err := fmt.Fprintln(c.out, "deleted")
		return err
	case "watch":
		return c.watch(ctx)
	default:
		return fmt.Errorf("unknown command %q", command)
	}
}

func oneArg(command string, args []string) (string, error) {
	if len(args) != 1 {
		return "", fmt.Errorf("%s takes exactly one argument", command)
	}
	return args[0], nil
}

func readDraft(path string) (directory.ProviderDraft, error) {
	var draft directory.ProviderDraft
	data, err := os.ReadFile(path)
	if err != nil {
		return draft, fmt.Errorf("read draft: %w", err)
	}
	if err := json.Unmarshal(data, &draft); err != nil {
		return draft, fmt.Errorf("decode draft %s: %w", path, err)
	}
	return draft, nil
}

// filtered refreshes and applies the filter flags.
func (c *cli) filtered(ctx context.Context) error {
	if err := c.controller.Dispatch(ctx, directory.Refresh{}); err != nil {
		return err
	}
	anchor := geo.Point{Lat: c.v.GetFloat64("lat"), Lng: c.v.GetFloat64("lng")}
	if err := c.controller.Dispatch(ctx, directory.SetAnchor{Point: anchor}); err != nil {
		return err
	}
	return c.controller.Dispatch(ctx, directory.ApplyFilters{
		Service:   c.v.GetString("service"),
		MinRating: c.v.GetFloat64("min-rating"),
		RadiusKm:  c.v.GetFloat64("radius"),
	})
}

func (c *cli) printProviders(state directory.State) {
	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	defer tw.Flush()
	fmt.Fprintln(tw, "ID\tNAME\tSERVICE\tRATING\tDISTANCE")
	for _, p := range state.Visible {
		meters := geo.Distance(state.Criteria.Anchor, p.Location)
		fmt.Fprintf(tw, "%s\t%s\t%s\t%.1f\t%.0f m\n", p.ID, p.Name, p.Service, p.Rating, meters)
	}
}

func (c *cli) printDetails(id string) error {
	p, ok := c.controller.Lookup(id)
	if !ok {
		return fmt.Errorf("%w: %s", directory.ErrUnknownProvider, id)
	}
	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Name\t%s\n", p.Name)
	fmt.Fprintf(tw, "Service\t%s\n", p.Service)
	fmt.Fprintf(tw, "Qualification\t%s\n", p.Qualification)
	fmt.Fprintf(tw, "Experience\t%s\n", p.Experience)
	fmt.Fprintf(tw, "Fees\t%s\n", p.Fees)
	fmt.Fprintf(tw, "Timing\t%s\n", p.Timing)
	fmt.Fprintf(tw, "Phone\t%s\n", p.Phone)
	fmt.Fprintf(tw, "Address\t%s\n", p.Address)
	fmt.Fprintf(tw, "Rating\t%.1f (%d reviews)\n", p.Rating, len(p.Reviews))
	if err := tw.Flush(); err != nil {
		return err
	}
	for _, r := range p.Reviews {
		fmt.Fprintf(c.out, "  %d/5 %s: %s\n", r.Rating, r.User, r.Text)
	}
	return nil
}

func (c *cli) printSession() error {
	state := c.controller.State()
	if state.Session == nil {
		_, err := fmt.Fprintln(c.out, "guest")
		return err
	}
	_, err := fmt.Fprintf(c.out, "signed in as %s (%s)\n", state.Session.Username, state.Session.Role)
	return err
}

func (c *cli) stats(ctx context.Context) error {
	recordType := c.v.GetString("type")
	if recordType == "" {
		counts, err := c.client.Counts(ctx)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(c.out, "users: %d\nproviders: %d\n", counts.TotalUsers, counts.TotalProviders)
		return err
	}

	records, err := c.client.ListRecords(ctx, recordType)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	defer tw.Flush()
	for _, r := range records {
		if r.Username != "" {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", r.ID, r.Username, r.Role)
		} else {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", r.ID, r.Name, r.Service)
		}
	}
	return nil
}

// watch keeps the filtered view current until ctx is done.
func (c *cli) watch(ctx context.Context) error {
	url := c.v.GetString("rabbitmq-url")
	if url == "" {
		return errors.New("watch needs --rabbitmq-url")
	}
	if err := c.filtered(ctx); err != nil {
		return err
	}
	c.printProviders(c.controller.State())

	mq, err := rabbitmq.NewClient(rabbitmq.Config{URL: url, Exchange: c.v.GetString("rabbitmq-exchange")})
	if err != nil {
		return err
	}
	defer mq.Close()

	err = mq.Consume("", rabbitmq.BindAll, func(evt rabbitmq.DirectoryEvent) error {
		logrus.WithFields(logrus.Fields{"type": evt.Type, "provider_id": evt.ProviderID}).Info("directory changed")
		if err := c.controller.Dispatch(ctx, directory.Refresh{}); err != nil {
			return err
		}
		fmt.Fprintf(c.out, "\n%s %s\n", evt.At.Format(time.RFC3339), evt.Type)
		c.printProviders(c.controller.State())
		return nil
	})
	if err != nil {
		return err
	}

	<-ctx.Done()
	return nil
}
