package client_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/okian/slumber/internal/adapters/http/api"
	service "github.com/okian/slumber/internal/app"
	"github.com/okian/slumber/internal/client"
	"github.com/okian/slumber/internal/domain/habit"
	"github.com/okian/slumber/internal/domain/quality"
	"github.com/okian/slumber/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func sampleRecord() habit.Record {
	return habit.Record{
		SleepDuration:    "7",
		Bedtime:          "23:00",
		WakeTime:         "06:00",
		Caffeine:         "None",
		ExerciseDuration: "30",
		ScreenTime:       "15",
		StressLevel:      "3",
		Mood:             "Happy",
		Interruptions:    "No",
	}
}

// stub answers every request with status and body.
func stub(status int, body string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
}

func newClient(url string) *client.Client {
	c, err := client.New(client.WithBaseURL(url), client.WithTimeout(2*time.Second))
	So(err, ShouldBeNil)
	return c
}

func TestClient_Predict(t *testing.T) {
	Convey("Given a service answering Good with no tips", t, func() {
		var gotPath, gotType string
		var gotBody []byte
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			gotType = r.Header.Get("Content-Type")
			gotBody, _ = io.ReadAll(r.Body)
			_, _ = io.WriteString(w, `{"quality":"Good","tips":[]}`)
		}))
		defer srv.Close()

		res, err := newClient(srv.URL).Predict(context.Background(), sampleRecord())

		Convey("Then the record is posted as strings and the result decoded", func() {
			So(err, ShouldBeNil)
			So(gotPath, ShouldEqual, "/predict")
			So(gotType, ShouldEqual, "application/json")
			So(string(gotBody), ShouldContainSubstring, `"stress_level":"3"`)
			So(res.Quality, ShouldEqual, quality.Good)
			So(res.Tips, ShouldBeEmpty)
		})
	})

	Convey("Given a service rejecting the caffeine value", t, func() {
		srv := stub(http.StatusBadRequest, `{"error":"Invalid caffeine value","code":"invalid_field"}`)
		defer srv.Close()

		_, err := newClient(srv.URL).Predict(context.Background(), sampleRecord())

		Convey("Then a ServiceError carries the message verbatim", func() {
			var se *client.ServiceError
			So(errors.As(err, &se), ShouldBeTrue)
			So(se.StatusCode, ShouldEqual, http.StatusBadRequest)
			So(se.Code, ShouldEqual, "invalid_field")
			So(client.Message(err), ShouldEqual, "Invalid caffeine value")
		})
	})

	Convey("Given a failure without an error field", t, func() {
		for _, body := range []string{`{}`, ``, `<html>oops</html>`} {
			srv := stub(http.StatusInternalServerError, body)
			_, err := newClient(srv.URL).Predict(context.Background(), sampleRecord())
			srv.Close()

			var se *client.ServiceError
			So(errors.As(err, &se), ShouldBeTrue)
			So(client.Message(err), ShouldEqual, client.FallbackMessage)
		}
	})

	Convey("Given 2xx answers that cannot be used", t, func() {
		for _, body := range []string{``, `not json`, `{"tips":[]}`, `{"quality":"Great","tips":[]}`, `null`} {
			srv := stub(http.StatusOK, body)
			_, err := newClient(srv.URL).Predict(context.Background(), sampleRecord())
			srv.Close()

			var me *client.MalformedResponseError
			So(errors.As(err, &me), ShouldBeTrue)
			So(client.Message(err), ShouldEqual, client.FallbackMessage)
		}
	})

	Convey("Given a 2xx answer without tips", t, func() {
		srv := stub(http.StatusOK, `{"quality":"Average"}`)
		defer srv.Close()

		res, err := newClient(srv.URL).Predict(context.Background(), sampleRecord())

		Convey("Then tips decode as an empty list", func() {
			So(err, ShouldBeNil)
			So(res.Quality, ShouldEqual, quality.Average)
			So(res.Tips, ShouldNotBeNil)
			So(res.Tips, ShouldBeEmpty)
		})
	})

	Convey("Given an unreachable service", t, func() {
		srv := stub(http.StatusOK, `{}`)
		url := srv.URL
		srv.Close()

		_, err := newClient(url).Predict(context.Background(), sampleRecord())

		Convey("Then a TransportError is returned", func() {
			var te *client.TransportError
			So(errors.As(err, &te), ShouldBeTrue)
		})
	})

	Convey("Given a bad base URL", t, func() {
		_, err := client.New(client.WithBaseURL("not a url"))

		Convey("Then New fails", func() {
			So(errors.Is(err, client.ErrInvalidBaseURL), ShouldBeTrue)
		})
	})
}

func TestClient_AgainstService(t *testing.T) {
	Convey("Given a running prediction service behind the HTTP API", t, func() {
		ctx := context.Background()
		svc := service.New()
		So(svc.Start(ctx), ShouldBeNil)
		defer func() { _ = svc.Stop(ctx) }()

		mux := http.NewServeMux()
		api.NewServer(svc, func(ctx context.Context) any { return svc.GetStats(ctx) }).Register(ctx, mux)
		srv := httptest.NewServer(mux)
		defer srv.Close()
		c := newClient(srv.URL)

		Convey("When a healthy record is submitted", func() {
			rec := sampleRecord()
			rec.ExerciseDuration = "45"
			res, err := c.Predict(ctx, rec)

			Convey("Then the result is Good", func() {
				So(err, ShouldBeNil)
				So(res.Quality, ShouldEqual, quality.Good)
				So(res.ID, ShouldNotBeEmpty)
				So(res.Tips, ShouldNotBeEmpty)
			})
		})

		Convey("When the caffeine value is unknown", func() {
			rec := sampleRecord()
			rec.Caffeine = "Lots"
			_, err := c.Predict(ctx, rec)

			Convey("Then the service message reaches the client", func() {
				So(client.Message(err), ShouldEqual, "Invalid caffeine value")
			})
		})
	})
}
