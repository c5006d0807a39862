package service_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/okian/covita/internal/adapters/http/ws"
	service "github.com/okian/covita/internal/app"
	"github.com/okian/covita/internal/domain/model"
	"github.com/okian/covita/internal/domain/view"
	"github.com/okian/covita/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

type fakeLoader struct {
	calls atomic.Int32
	fail  atomic.Bool
}

func (l *fakeLoader) Load(context.Context) (*model.Dataset, error) {
	n := l.calls.Add(1)
	if l.fail.Load() {
		return nil, model.ErrDataUnavailable
	}
	day := func(d int) time.Time { return time.Date(2020, 3, d, 0, 0, 0, 0, time.UTC) }
	rec := func(d int, region string, cases float64) model.Record {
		r := model.Record{Date: day(d), Region: region}
		r.Values[model.TotalCases] = cases
		return r
	}
	return &model.Dataset{
		ID:        string(rune('a' + n - 1)),
		FetchedAt: time.Date(2020, 3, 3, 18, 0, 0, 0, time.UTC),
		Records: []model.Record{
			rec(1, "Lombardia", 100), rec(1, "Veneto", 10), rec(1, "Lazio", 3),
			rec(2, "Lombardia", 150), rec(2, "Veneto", 25), rec(2, "Lazio", 6),
		},
	}, nil
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []ws.Event
}

func (n *recordingNotifier) Broadcast(_ context.Context, ev ws.Event) {
	n.mu.Lock()
	n.events = append(n.events, ev)
	n.mu.Unlock()
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.events)
}

func cases(mode model.Mode, regions ...string) model.Request {
	return model.Request{Metric: model.TotalCases, Mode: mode, Regions: regions}
}

func TestService_Lifecycle(t *testing.T) {
	Convey("Given a service that has not started", t, func() {
		svc := service.New(service.WithLoader(&fakeLoader{}))

		Convey("Then queries fail with ErrNotStarted", func() {
			_, err := svc.Dataset(context.Background())
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
			_, err = svc.Refresh(context.Background())
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
			So(errors.Is(svc.Invalidate(context.Background()), service.ErrNotStarted), ShouldBeTrue)
			So(svc.GetStats()["started"], ShouldBeFalse)
		})

		Convey("When it is started twice and stopped twice", func() {
			ctx := context.Background()
			So(svc.Start(ctx), ShouldBeNil)
			So(svc.Start(ctx), ShouldBeNil)
			svc.Stop()
			svc.Stop()

			Convey("Then it ends stopped", func() {
				So(svc.GetStats()["started"], ShouldBeFalse)
			})
		})
	})

	Convey("Given fetch timeout options", t, func() {
		Convey("Then the default bounds each attempt", func() {
			So(service.New().GetStats()["fetchTimeout"], ShouldEqual, "1m0s")
		})

		Convey("Then zero disables the bound", func() {
			svc := service.New(service.WithFetchTimeout(0))
			So(svc.GetStats()["fetchTimeout"], ShouldEqual, "0s")
		})

		Convey("Then a negative value is ignored", func() {
			svc := service.New(service.WithFetchTimeout(-time.Second))
			So(svc.GetStats()["fetchTimeout"], ShouldEqual, "1m0s")
		})
	})
}

func TestService_Queries(t *testing.T) {
	Convey("Given a started service over a fake dataset", t, func() {
		ctx := context.Background()
		loader := &fakeLoader{}
		notifier := &recordingNotifier{}
		svc := service.New(
			service.WithLoader(loader),
			service.WithNotifier(notifier),
			service.WithDefaultRegions([]string{"Lazio"}),
			service.WithChartSize(640, 480),
		)
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		Convey("When the national series is requested twice", func() {
			first, id1, err1 := svc.National(ctx, cases(model.Cumulative))
			_, id2, err2 := svc.National(ctx, cases(model.DailyChange))

			Convey("Then one fetch serves both", func() {
				So(err1, ShouldBeNil)
				So(err2, ShouldBeNil)
				So(id1, ShouldEqual, id2)
				So(loader.calls.Load(), ShouldEqual, 1)
				So(len(first), ShouldEqual, 2)
				So(first[1].Value, ShouldEqual, 181)
			})
		})

		Convey("When regional series are requested", func() {
			points, _, err := svc.ByRegion(ctx, cases(model.DailyChange, "Veneto", "Lazio"))

			Convey("Then each region is differenced on its own", func() {
				So(err, ShouldBeNil)
				So(len(points), ShouldEqual, 2)
				So(points[0].Region, ShouldEqual, "Lazio")
				So(points[0].Value, ShouldEqual, 3)
				So(points[1].Region, ShouldEqual, "Veneto")
				So(points[1].Value, ShouldEqual, 15)
			})
		})

		Convey("When a view is built without a size", func() {
			v, err := svc.View(ctx, cases(model.Cumulative, "Lombardia"), view.Options{Scale: model.SymLog})

			Convey("Then the configured chart size applies", func() {
				So(err, ShouldBeNil)
				So(v.National.Width, ShouldEqual, 640)
				So(v.Regional.Height, ShouldEqual, 480)
				So(v.National.Scale, ShouldEqual, model.SymLog)
				So(v.DatasetID, ShouldEqual, "a")
			})
		})

		Convey("When the request is invalid", func() {
			_, err := svc.View(ctx, model.Request{Metric: 99, Mode: model.Cumulative}, view.Options{})

			Convey("Then no fetch happens", func() {
				So(errors.Is(err, model.ErrInvalidMetric), ShouldBeTrue)
				So(loader.calls.Load(), ShouldEqual, 0)
			})
		})

		Convey("When the dataset is refreshed", func() {
			_, _ = svc.Dataset(ctx)
			ds, err := svc.Refresh(ctx)

			Convey("Then a new snapshot is cached and clients are notified", func() {
				So(err, ShouldBeNil)
				So(ds.ID, ShouldEqual, "b")
				again, _ := svc.Dataset(ctx)
				So(again, ShouldPointTo, ds)
				So(notifier.count(), ShouldEqual, 1)
				So(notifier.events[0].DatasetID, ShouldEqual, "b")
				So(notifier.events[0].Records, ShouldEqual, 6)
			})
		})

		Convey("When a refresh fails", func() {
			before, _ := svc.Dataset(ctx)
			loader.fail.Store(true)
			_, err := svc.Refresh(ctx)
			after, getErr := svc.Dataset(ctx)

			Convey("Then the old snapshot keeps serving and nobody is notified", func() {
				So(errors.Is(err, model.ErrDataUnavailable), ShouldBeTrue)
				So(getErr, ShouldBeNil)
				So(after, ShouldPointTo, before)
				So(notifier.count(), ShouldEqual, 0)
			})
		})

		Convey("When the cache is invalidated", func() {
			_, _ = svc.Dataset(ctx)
			So(svc.Invalidate(ctx), ShouldBeNil)
			_, _ = svc.Dataset(ctx)

			Convey("Then the next query fetches again", func() {
				So(loader.calls.Load(), ShouldEqual, 2)
			})
		})

		Convey("When stats are read after a load", func() {
			_, _ = svc.Dataset(ctx)
			stats := svc.GetStats()

			Convey("Then they describe the cached dataset", func() {
				So(stats["cached"], ShouldBeTrue)
				So(stats["records"], ShouldEqual, 6)
				So(stats["regions"], ShouldEqual, 3)
				So(stats["firstDate"], ShouldEqual, "2020-03-01")
				So(stats["lastDate"], ShouldEqual, "2020-03-02")
				So(stats["cacheTTL"], ShouldEqual, "0s")
			})
		})

		Convey("Then regions and the preset are exposed", func() {
			regions, err := svc.Regions(ctx)
			So(err, ShouldBeNil)
			So(regions, ShouldResemble, []string{"Lombardia", "Veneto", "Lazio"})
			So(svc.DefaultRegions(), ShouldResemble, []string{"Lazio"})
		})
	})
}

func TestService_BackgroundRefresh(t *testing.T) {
	Convey("Given a service with a short refresh interval", t, func() {
		loader := &fakeLoader{}
		notifier := &recordingNotifier{}
		svc := service.New(
			service.WithLoader(loader),
			service.WithNotifier(notifier),
			service.WithRefreshInterval(20*time.Millisecond),
		)
		So(svc.Start(context.Background()), ShouldBeNil)
		So(svc.GetStats()["refreshInterval"], ShouldEqual, "20ms")

		Convey("When it runs for a while", func() {
			time.Sleep(120 * time.Millisecond)
			svc.Stop()

			Convey("Then the dataset was refreshed and clients notified", func() {
				So(loader.calls.Load(), ShouldBeGreaterThanOrEqualTo, 2)
				So(notifier.count(), ShouldBeGreaterThanOrEqualTo, 2)
			})
		})
	})

	Convey("Given a service with warmup", t, func() {
		loader := &fakeLoader{}
		svc := service.New(service.WithLoader(loader), service.WithWarmup(true))
		So(svc.Start(context.Background()), ShouldBeNil)
		defer svc.Stop()

		Convey("Then the dataset is loaded without a request", func() {
			deadline := time.Now().Add(time.Second)
			for loader.calls.Load() == 0 && time.Now().Before(deadline) {
				time.Sleep(5 * time.Millisecond)
			}
			So(loader.calls.Load(), ShouldEqual, 1)
		})
	})
}
