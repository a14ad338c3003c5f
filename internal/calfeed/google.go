package calfeed

import (
	"context"
	"encoding/json"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/hireloop/slotd/internal/model"
	"github.com/hireloop/slotd/pkg/errors"
)

const ProviderGoogle = "google"

// GoogleConfig is the OAuth2 app identity shared by every synced user.
type GoogleConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	RedirectURL  string `yaml:"redirect_url"`
}

func NewGoogleAdapter(cfg GoogleConfig) *GoogleAdapter {
	return &GoogleAdapter{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{calendar.CalendarReadonlyScope},
			Endpoint:     google.Endpoint,
		},
	}
}

type GoogleAdapter struct {
	oauth *oauth2.Config
}

func (g *GoogleAdapter) Provider() string { return ProviderGoogle }

// PullBusyIntervals lists the user's events over within and flattens them
// to intervals. All-day events cover their whole days.
func (g *GoogleAdapter) PullBusyIntervals(ctx context.Context, creds Credentials, within model.Interval) ([]model.Interval, error) {
	var token oauth2.Token
	err := json.Unmarshal([]byte(creds.Token), &token)
	if err != nil {
		return nil, errors.Wrap(err, "decode oauth token")
	}

	srv, err := calendar.NewService(ctx, option.WithHTTPClient(g.oauth.Client(ctx, &token)))
	if err != nil {
		return nil, errors.WrapFail(err, "create calendar service")
	}

	calendarID := creds.CalendarID
	if calendarID == "" {
		calendarID = "primary"
	}

	events, err := srv.Events.List(calendarID).
		SingleEvents(true).
		OrderBy("startTime").
		TimeMin(within.From().Format(time.RFC3339)).
		TimeMax(within.To().Format(time.RFC3339)).
		MaxResults(250).
		Context(ctx).
		Do()
	if err != nil {
		return nil, errors.WrapFail(err, "list events")
	}

	var intervals []model.Interval
	for _, item := range events.Items {
		if item.Status == "cancelled" {
			continue
		}
		from, okFrom := eventTime(item.Start)
		to, okTo := eventTime(item.End)
		if !okFrom || !okTo {
			continue
		}
		if t := model.NewInterval(from, to); t.Valid() {
			intervals = append(intervals, t)
		}
	}

	return intervals, nil
}

func eventTime(t *calendar.EventDateTime) (time.Time, bool) {
	if t == nil {
		return time.Time{}, false
	}
	if t.DateTime != "" {
		parsed, err := time.Parse(time.RFC3339, t.DateTime)
		return parsed, err == nil
	}
	if t.Date != "" {
		parsed, err := time.Parse("2006-01-02", t.Date)
		return parsed, err == nil
	}
	return time.Time{}, false
}
