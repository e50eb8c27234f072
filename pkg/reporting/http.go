package reporting

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
)

const (
	DefaultTimeout = 5 * time.Second

	defaultBreakerFailures = 5
	defaultBreakerOpen     = time.Minute
)

// BreakerObserver is notified when the report circuit breaker changes state.
type BreakerObserver interface {
	BreakerState(name string, state gobreaker.State)
}

type HTTPReporterOptions struct {
	URL             string
	Timeout         time.Duration
	BreakerFailures uint32
	BreakerOpen     time.Duration
	Observer        BreakerObserver
	Client          *http.Client
}

// HTTPReporter POSTs JSON documents to the website behind a circuit breaker
// that opens after consecutive transport failures.
type HTTPReporter struct {
	url     string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
	log     *logrus.Entry
}

func NewHTTPReporter(opts HTTPReporterOptions, log *logrus.Entry) *HTTPReporter {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.BreakerFailures == 0 {
		opts.BreakerFailures = defaultBreakerFailures
	}
	if opts.BreakerOpen <= 0 {
		opts.BreakerOpen = defaultBreakerOpen
	}
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}

	failures := opts.BreakerFailures
	settings := gobreaker.Settings{
		Name:    "report",
		Timeout: opts.BreakerOpen,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.WithFields(logrus.Fields{"from": from.String(), "to": to.String()}).Warn("report circuit breaker changed state")
			if opts.Observer != nil {
				opts.Observer.BreakerState(name, to)
			}
		},
	}

	return &HTTPReporter{
		url:     opts.URL,
		client:  client,
		breaker: gobreaker.NewCircuitBreaker(settings),
		log:     log,
	}
}

// Push sends the report. Success only means the request completed; the status code is logged, not interpreted.
func (r *HTTPReporter) Push(ctx context.Context, report Report) error {
	body, err := json.Marshal(report)
	if err != nil {
		return errors.Wrap(err, "encode report")
	}
	_, err = r.breaker.Execute(func() (interface{}, error) {
		return nil, r.post(ctx, body)
	})
	if err != nil {
		return errors.Wrapf(err, "push report to %s", r.url)
	}
	return nil
}

func (r *HTTPReporter) post(ctx context.Context, body []byte) error {
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	request.Header.Set("Content-Type", "application/json")

	response, err := r.client.Do(request)
	if err != nil {
		return err
	}
	defer response.Body.Close()
	_, _ = io.Copy(io.Discard, response.Body)
	r.log.WithField("status", response.StatusCode).Debug("report delivered")
	return nil
}

// State returns the circuit breaker state.
func (r *HTTPReporter) State() gobreaker.State {
	return r.breaker.State()
}
