// Command slotwatch searches the portal for appointment slots from the
// terminal, optionally watching until one shows up.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/azielinski/slotwatch/internal/config"
	"github.com/azielinski/slotwatch/internal/medicover"
	"github.com/azielinski/slotwatch/internal/monitor"
	"github.com/azielinski/slotwatch/internal/notify"
	"github.com/azielinski/slotwatch/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	var (
		regionArg    = flag.String("region", "", "region name fragment, e.g. \"wars\"")
		specialtyArg = flag.String("specialty", "", "specialty name fragment")
		clinicArg    = flag.String("clinic", "", "clinic name fragment (optional)")
		doctorArg    = flag.String("doctor", "", "doctor name fragment (optional)")
		fromArg      = flag.String("from", "", "earliest date, dd-mm-yyyy (default today)")
		fromTimeArg  = flag.String("from-time", "", "earliest time of day, HH:MM")
		toTimeArg    = flag.String("to-time", "", "latest time of day, HH:MM")
		toDateArg    = flag.String("to-date", "", "last acceptable date, dd-mm-yyyy")
		watch        = flag.Bool("watch", false, "keep polling until a matching slot appears")
		interval     = flag.Duration("interval", 0, "poll interval in watch mode (default 30s)")
		appointments = flag.Bool("appointments", false, "list booked future appointments and exit")
	)
	flag.Parse()

	cfg := config.Load()
	logger := logging.NewText(cfg.LogLevel)

	creds := medicover.Credentials{
		Username: os.Getenv("MEDICOVER_USERNAME"),
		Password: os.Getenv("MEDICOVER_PASSWORD"),
	}
	if creds.Username == "" || creds.Password == "" {
		fail("set MEDICOVER_USERNAME and MEDICOVER_PASSWORD (a .env file works too)")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := newPortalClient(cfg, creds, logger)

	if *appointments {
		listAppointments(ctx, client)
		return
	}

	if *regionArg == "" || *specialtyArg == "" {
		fail("-region and -specialty are required (fragments are fine, e.g. -region wars)")
	}

	query, err := buildQuery(ctx, client, queryArgs{
		region:    *regionArg,
		specialty: *specialtyArg,
		clinic:    *clinicArg,
		doctor:    *doctorArg,
		from:      *fromArg,
		fromTime:  *fromTimeArg,
		toTime:    *toTimeArg,
		toDate:    *toDateArg,
	})
	if err != nil {
		if errors.Is(err, medicover.ErrIncorrectLogin) {
			fail("the portal rejected your credentials")
		}
		fail(err.Error())
	}

	if *watch {
		watchSlots(ctx, client, query, *interval, logger)
		return
	}

	slots, err := client.SearchSlots(ctx, query)
	if err != nil {
		fail("slot search failed: " + err.Error())
	}
	if len(slots) == 0 {
		fmt.Println("No matching slots right now. Try -watch to keep looking.")
		return
	}
	fmt.Printf("Found %d slot(s):\n\n%s", len(slots), notify.FormatSlots(slots))
}

type queryArgs struct {
	region, specialty, clinic, doctor string
	from, fromTime, toTime, toDate    string
}

func buildQuery(ctx context.Context, client *medicover.Client, args queryArgs) (medicover.SlotQuery, error) {
	var query medicover.SlotQuery

	region, err := resolve(args.region, "region", func() ([]medicover.FilterOption, error) {
		return client.ListRegions(ctx)
	})
	if err != nil {
		return query, err
	}
	query.RegionID = region.ID

	specialty, err := resolve(args.specialty, "specialty", func() ([]medicover.FilterOption, error) {
		return client.ListSpecialties(ctx, region.ID)
	})
	if err != nil {
		return query, err
	}
	query.SpecialtyID = specialty.ID
	fmt.Printf("Searching: %s / %s\n", region.Value, specialty.Value)

	if args.clinic != "" {
		clinic, err := resolve(args.clinic, "clinic", func() ([]medicover.FilterOption, error) {
			return client.ListClinics(ctx, region.ID, specialty.ID)
		})
		if err != nil {
			return query, err
		}
		query.ClinicID = clinic.ID
		fmt.Printf("Clinic: %s\n", clinic.Value)
	}

	if args.doctor != "" {
		doctor, err := resolve(args.doctor, "doctor", func() ([]medicover.FilterOption, error) {
			return client.ListDoctors(ctx, region.ID, specialty.ID, query.ClinicID)
		})
		if err != nil {
			return query, err
		}
		query.DoctorID = doctor.ID
		fmt.Printf("Doctor: %s\n", doctor.Value)
	}

	if args.from != "" {
		if query.FromDate, err = medicover.ParseDate(args.from); err != nil {
			return query, err
		}
	}
	if args.fromTime != "" {
		if query.FromTime, err = medicover.ParseClock(args.fromTime); err != nil {
			return query, err
		}
	}
	if args.toTime != "" {
		if query.ToTime, err = medicover.ParseClock(args.toTime); err != nil {
			return query, err
		}
	}
	if args.toDate != "" {
		if query.ToDate, err = medicover.ParseDate(args.toDate); err != nil {
			return query, err
		}
	}
	return query, nil
}

// resolve turns a free-text fragment into exactly one filter option,
// printing the candidates when the fragment is missing or ambiguous.
func resolve(fragment, label string, list func() ([]medicover.FilterOption, error)) (medicover.FilterOption, error) {
	options, err := list()
	if err != nil {
		return medicover.FilterOption{}, fmt.Errorf("listing %ss failed: %w", label, err)
	}

	matches := medicover.MatchOptions(options, fragment)
	switch len(matches) {
	case 1:
		return matches[0], nil
	case 0:
		fmt.Printf("No %s matches %q. Available:\n", label, fragment)
		printOptions(options)
		return medicover.FilterOption{}, fmt.Errorf("no matching %s", label)
	default:
		fmt.Printf("%q is ambiguous for %s. Matches:\n", fragment, label)
		printOptions(matches)
		return medicover.FilterOption{}, fmt.Errorf("ambiguous %s", label)
	}
}

func printOptions(options []medicover.FilterOption) {
	for _, opt := range options {
		fmt.Printf("  %s\n", opt.Value)
	}
}

// printingNotifier writes the found slots to stdout; watch mode is a
// terminal session, not a service.
type printingNotifier struct{}

func (printingNotifier) SlotsFound(_ context.Context, _ monitor.Subscription, slots []medicover.Slot) {
	fmt.Printf("\nFound %d slot(s):\n\n%s", len(slots), notify.FormatSlots(slots))
}

func watchSlots(ctx context.Context, client *medicover.Client, query medicover.SlotQuery, interval time.Duration, logger *logging.Logger) {
	sub := monitor.NewSubscription("cli", query)
	runner := monitor.NewRunner(client, printingNotifier{}, logger).WithInterval(interval)

	fmt.Println("Watching for slots, Ctrl-C to stop...")
	outcome, err := runner.Run(ctx, sub)
	switch outcome {
	case monitor.OutcomeFound:
	case monitor.OutcomeCancelled:
		fmt.Println("Stopped.")
	default:
		fail("watch aborted: " + err.Error())
	}
}

func listAppointments(ctx context.Context, client *medicover.Client) {
	appointments, err := client.FutureAppointments(ctx)
	if err != nil {
		fail("could not list appointments: " + err.Error())
	}
	if len(appointments) == 0 {
		fmt.Println("No upcoming appointments.")
		return
	}
	for _, a := range appointments {
		fmt.Printf("%s  %s  %s (%s)\n",
			a.Date.Format("Mon 02-01-2006 15:04"), a.DoctorName, a.ClinicName, a.State)
	}
}

func newPortalClient(cfg *config.Config, creds medicover.Credentials, logger *logging.Logger) *medicover.Client {
	var authOpts []medicover.AuthOption
	if cfg.PortalAuthBaseURL != "" {
		authOpts = append(authOpts, medicover.WithAuthBaseURL(cfg.PortalAuthBaseURL))
	}
	opts := []medicover.Option{
		medicover.WithAuthenticator(medicover.NewAuthenticator(logger, authOpts...)),
		medicover.WithPageSize(cfg.SearchPageSize),
	}
	if cfg.PortalAPIBaseURL != "" {
		opts = append(opts, medicover.WithAPIBaseURL(cfg.PortalAPIBaseURL))
	}
	return medicover.NewClient(creds, logger, opts...)
}

func fail(msg string) {
	fmt.Fprintln(os.Stderr, "slotwatch: "+msg)
	os.Exit(1)
}
