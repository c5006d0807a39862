package source_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/okian/covita/internal/adapters/source"
	"github.com/okian/covita/internal/domain/model"
	"github.com/okian/covita/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

const csvBody = "data,denominazione_regione,ricoverati_con_sintomi,terapia_intensiva,totale_ospedalizzati,isolamento_domiciliare,totale_attualmente_positivi,nuovi_attualmente_positivi,dimessi_guariti,deceduti,totale_casi,tamponi\n" +
	"2020-03-01T18:00:00,Lombardia,1,2,3,4,5,6,7,8,100,10\n" +
	"2020-03-02T09:00:00,Lombardia,1,2,3,4,5,6,7,8,150,10\n"

func TestHTTPSource_Load(t *testing.T) {
	Convey("Given an upstream serving the regional CSV", t, func() {
		var hits atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			w.Header().Set("Content-Type", "text/csv")
			_, _ = w.Write([]byte(csvBody))
		}))
		defer srv.Close()

		src := source.New(srv.URL)

		Convey("When loading", func() {
			ds, err := src.Load(context.Background())

			Convey("Then the dataset is parsed and stamped", func() {
				So(err, ShouldBeNil)
				So(ds.Len(), ShouldEqual, 2)
				So(ds.ID, ShouldNotBeEmpty)
				So(ds.Source, ShouldEqual, srv.URL)
				So(ds.FetchedAt.IsZero(), ShouldBeFalse)
				So(ds.Records[0].Date, ShouldEqual, time.Date(2020, 3, 1, 0, 0, 0, 0, time.UTC))
				So(hits.Load(), ShouldEqual, 1)
			})

			Convey("And every load yields a new snapshot id", func() {
				again, err := src.Load(context.Background())
				So(err, ShouldBeNil)
				So(again.ID, ShouldNotEqual, ds.ID)
			})
		})
	})

	Convey("Given an upstream that returns 404", t, func() {
		var hits atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			http.NotFound(w, r)
		}))
		defer srv.Close()

		src := source.New(srv.URL, source.WithRetries(3), source.WithBackoff(time.Millisecond, 2*time.Millisecond))

		Convey("Then the load fails with ErrDataUnavailable without retrying", func() {
			ds, err := src.Load(context.Background())
			So(ds, ShouldBeNil)
			So(errors.Is(err, model.ErrDataUnavailable), ShouldBeTrue)
			So(hits.Load(), ShouldEqual, 1)
		})
	})

	Convey("Given an upstream that fails twice with 503", t, func() {
		var hits atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if hits.Add(1) <= 2 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			_, _ = w.Write([]byte(csvBody))
		}))
		defer srv.Close()

		Convey("When retries are disabled", func() {
			src := source.New(srv.URL)
			_, err := src.Load(context.Background())

			Convey("Then the first failure is final", func() {
				So(errors.Is(err, model.ErrDataUnavailable), ShouldBeTrue)
				So(hits.Load(), ShouldEqual, 1)
			})
		})

		Convey("When retries are enabled", func() {
			src := source.New(srv.URL, source.WithRetries(2), source.WithBackoff(time.Millisecond, 2*time.Millisecond))
			ds, err := src.Load(context.Background())

			Convey("Then the third attempt succeeds", func() {
				So(err, ShouldBeNil)
				So(ds.Len(), ShouldEqual, 2)
				So(hits.Load(), ShouldEqual, 3)
			})
		})
	})

	Convey("Given an upstream serving something that is not the dataset", t, func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("<html>maintenance</html>"))
		}))
		defer srv.Close()

		Convey("Then parsing fails with ErrDataUnavailable", func() {
			_, err := source.New(srv.URL).Load(context.Background())
			So(errors.Is(err, model.ErrDataUnavailable), ShouldBeTrue)
			So(errors.Is(err, source.ErrMissingColumn), ShouldBeTrue)
		})
	})

	Convey("Given an unreachable upstream", t, func() {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()

		Convey("Then the load fails with ErrDataUnavailable", func() {
			_, err := source.New(url, source.WithTimeout(time.Second)).Load(context.Background())
			So(errors.Is(err, model.ErrDataUnavailable), ShouldBeTrue)
		})
	})

	Convey("Given an upstream serving a non-finite value", t, func() {
		var hits atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			_, _ = w.Write([]byte(strings.Replace(csvBody, ",150,", ",NaN,", 1)))
		}))
		defer srv.Close()

		Convey("Then the load fails with ErrDataUnavailable without retrying", func() {
			_, err := source.New(srv.URL, source.WithRetries(3)).Load(context.Background())
			So(errors.Is(err, model.ErrDataUnavailable), ShouldBeTrue)
			So(errors.Is(err, source.ErrMalformedRow), ShouldBeTrue)
			So(hits.Load(), ShouldEqual, 1)
		})
	})

	Convey("Given an upstream slower than the timeout", t, func() {
		release := make(chan struct{})
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-release:
			case <-r.Context().Done():
			}
		}))
		defer srv.Close()
		defer close(release)

		Convey("Then the load gives up with ErrDataUnavailable", func() {
			start := time.Now()
			_, err := source.New(srv.URL, source.WithTimeout(50*time.Millisecond)).Load(context.Background())
			So(errors.Is(err, model.ErrDataUnavailable), ShouldBeTrue)
			So(time.Since(start), ShouldBeLessThan, 2*time.Second)
		})
	})
}
