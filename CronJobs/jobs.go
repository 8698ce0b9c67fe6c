package CronJobs

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"ClientMax/Models"
	"ClientMax/Reports"
	"ClientMax/Repository"
	"ClientMax/Store"

	"github.com/robfig/cron/v3"
)

// KeepAlive pings the service's own keepalive endpoint so the host does not
// idle it out.
type KeepAlive struct {
	cronScheduler *cron.Cron
	URL           string
	Interval      time.Duration
	Client        *http.Client
}

// NewKeepAlive returns nil when serviceURL is empty; a nil KeepAlive is a no-op.
func NewKeepAlive(serviceURL string, interval time.Duration) *KeepAlive {
	if serviceURL == "" {
		return nil
	}
	return &KeepAlive{
		cronScheduler: cron.New(cron.WithSeconds()),
		URL:           serviceURL + "/api/keepalive",
		Interval:      interval,
		Client:        &http.Client{Timeout: 30 * time.Second},
	}
}

// Start schedules the ping every Interval.
func (k *KeepAlive) Start() error {
	if k == nil {
		log.Println("Keep-alive disabled: no service URL configured")
		return nil
	}
	_, err := k.cronScheduler.AddFunc(fmt.Sprintf("@every %s", k.Interval), func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := k.Ping(ctx); err != nil {
			log.Printf("Keep-alive ping failed: %v", err)
		}
	})
	if err != nil {
		return fmt.Errorf("error scheduling cron job: %w", err)
	}

	k.cronScheduler.Start()
	log.Printf("Keep-alive started - pinging %s every %s", k.URL, k.Interval)
	return nil
}

func (k *KeepAlive) Stop() {
	if k != nil && k.cronScheduler != nil {
		<-k.cronScheduler.Stop().Done()
		log.Println("Keep-alive stopped")
	}
}

// Ping performs one keepalive request.
func (k *KeepAlive) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, k.URL, nil)
	if err != nil {
		return fmt.Errorf("error creating request: %w", err)
	}
	resp, err := k.Client.Do(req)
	if err != nil {
		return fmt.Errorf("error sending request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("keepalive returned status %d", resp.StatusCode)
	}
	return nil
}

type AssignmentLister interface {
	List(ctx context.Context, filter Store.AssignmentFilter) ([]Models.WorkAssignment, error)
}

// DigestPoster publishes the daily summary, e.g. to Slack.
type DigestPoster interface {
	PostDigest(ctx context.Context, summary Repository.Summary, overdue []Models.WorkAssignment, day time.Time) error
}

// ReportMailer emails the daily workbook.
type ReportMailer interface {
	SendReport(ctx context.Context, to []string, subject, body string, attachment Models.Attachment) error
}

// Digest posts the assignment summary on a schedule and optionally emails
// the workbook to Recipients.
type Digest struct {
	cronScheduler *cron.Cron
	Schedule      string
	Assignments   AssignmentLister
	Poster        DigestPoster
	Mailer        ReportMailer
	Recipients    []string
	Now           func() time.Time
}

// NewDigest creates the job. Format: "0 0 9 * * *" = At 09:00:00 AM every day
func NewDigest(schedule string, assignments AssignmentLister, poster DigestPoster) *Digest {
	return &Digest{
		cronScheduler: cron.New(cron.WithSeconds()),
		Schedule:      schedule,
		Assignments:   assignments,
		Poster:        poster,
		Now:           time.Now,
	}
}

// Start schedules the digest.
func (d *Digest) Start() error {
	_, err := d.cronScheduler.AddFunc(d.Schedule, func() {
		log.Println("Running scheduled assignment digest")
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		if err := d.Run(ctx); err != nil {
			log.Printf("Assignment digest failed: %v", err)
		}
	})
	if err != nil {
		return fmt.Errorf("error scheduling cron job: %w", err)
	}

	d.cronScheduler.Start()
	log.Printf("Assignment digest scheduler started (%s)", d.Schedule)
	return nil
}

func (d *Digest) Stop() {
	if d.cronScheduler != nil {
		<-d.cronScheduler.Stop().Done()
		log.Println("Assignment digest scheduler stopped")
	}
}

// Run builds one digest. A poster failure does not prevent the email.
func (d *Digest) Run(ctx context.Context) error {
	assignments, err := d.Assignments.List(ctx, Store.AssignmentFilter{})
	if err != nil {
		return fmt.Errorf("error listing assignments: %w", err)
	}
	now := d.Now()
	summary := Repository.Summarize(assignments, now)

	var postErr error
	if d.Poster != nil {
		postErr = d.Poster.PostDigest(ctx, summary, Repository.Overdue(assignments, now), now)
	}

	if d.Mailer != nil && len(d.Recipients) > 0 {
		buf, err := Reports.AssignmentsWorkbook(assignments, summary, now)
		if err != nil {
			return fmt.Errorf("error building workbook: %w", err)
		}
		day := now.Format(Models.DateLayout)
		err = d.Mailer.SendReport(ctx, d.Recipients,
			fmt.Sprintf("Assignments report %s", day),
			fmt.Sprintf("%d assignments, %d due today.", summary.Total, summary.DueToday),
			Models.Attachment{
				Filename: fmt.Sprintf("assignments-%s.xlsx", day),
				Data:     buf.Bytes(),
				MimeType: Reports.XLSXContentType,
			},
		)
		if err != nil {
			return fmt.Errorf("error emailing report: %w", err)
		}
	}
	return postErr
}
