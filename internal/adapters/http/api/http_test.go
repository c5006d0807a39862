package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image/png"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/okian/covita/internal/adapters/http/api"
	"github.com/okian/covita/internal/domain/aggregate"
	"github.com/okian/covita/internal/domain/model"
	"github.com/okian/covita/internal/domain/view"
	. "github.com/smartystreets/goconvey/convey"
)

// mockDependencies answers from an in-memory dataset, or fails with err.
type mockDependencies struct {
	ds         *model.Dataset
	err        error
	refreshErr error
	lastReq    model.Request
	refreshes  int
	invalidErr error
	invalids   int
}

func newMockDependencies() *mockDependencies {
	rec := func(d int, region string, cases float64) model.Record {
		r := model.Record{Date: time.Date(2020, 3, d, 0, 0, 0, 0, time.UTC), Region: region}
		r.Values[model.TotalCases] = cases
		r.Values[model.Deceased] = cases / 10
		return r
	}
	return &mockDependencies{ds: &model.Dataset{
		ID:     "ds-1",
		Source: "test",
		Records: []model.Record{
			rec(1, "Lombardia", 100), rec(1, "Veneto", 20), rec(1, "Lazio", 5),
			rec(2, "Lombardia", 150), rec(2, "Veneto", 30), rec(2, "Lazio", 9),
			rec(3, "Lombardia", 240), rec(3, "Veneto", 35),
		},
	}}
}

func (m *mockDependencies) Regions(context.Context) ([]string, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.ds.Regions(), nil
}

func (m *mockDependencies) DefaultRegions() []string { return []string{"Lombardia", "Veneto"} }

func (m *mockDependencies) View(_ context.Context, req model.Request, opts view.Options) (view.View, error) {
	m.lastReq = req
	if m.err != nil {
		return view.View{}, m.err
	}
	opts.Width, opts.Height = 320, 240
	return view.Build(m.ds, req, opts)
}

func (m *mockDependencies) National(_ context.Context, req model.Request) ([]model.Point, string, error) {
	m.lastReq = req
	if m.err != nil {
		return nil, "", m.err
	}
	points, err := aggregate.National(m.ds, req)
	return points, m.ds.ID, err
}

func (m *mockDependencies) ByRegion(_ context.Context, req model.Request) ([]model.RegionPoint, string, error) {
	m.lastReq = req
	if m.err != nil {
		return nil, "", m.err
	}
	points, err := aggregate.ByRegion(m.ds, req)
	return points, m.ds.ID, err
}

func (m *mockDependencies) Refresh(context.Context) (*model.Dataset, error) {
	m.refreshes++
	if m.refreshErr != nil {
		return nil, m.refreshErr
	}
	return m.ds, nil
}

func (m *mockDependencies) Invalidate(context.Context) error {
	m.invalids++
	return m.invalidErr
}

type mockStatsProvider struct {
	stats map[string]interface{}
}

func (m *mockStatsProvider) GetStats() map[string]interface{} {
	return m.stats
}

func serve(mux *http.ServeMux, method, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, http.NoBody)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func decodeJSON(w *httptest.ResponseRecorder, v any) {
	So(w.Header().Get("Content-Type"), ShouldEqual, "application/json; charset=utf-8")
	So(json.Unmarshal(w.Body.Bytes(), v), ShouldBeNil)
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func TestServer_Register(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		deps := newMockDependencies()
		stats := &mockStatsProvider{stats: map[string]interface{}{"started": true}}
		mux := http.NewServeMux()
		api.NewServer(deps, stats).Register(context.Background(), mux)

		Convey("Then the health endpoint exposes metrics", func() {
			w := serve(mux, "GET", "/healthz")
			So(w.Code, ShouldEqual, http.StatusOK)
		})

		Convey("And the stats endpoint returns the provider's map", func() {
			w := serve(mux, "GET", "/stats")
			So(w.Code, ShouldEqual, http.StatusOK)
			var body map[string]interface{}
			decodeJSON(w, &body)
			So(body["started"], ShouldEqual, true)
		})

		Convey("And unknown paths are not found", func() {
			w := serve(mux, "GET", "/unknown")
			So(w.Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("And wrong methods are rejected", func() {
			w := serve(mux, "POST", "/api/view")
			So(w.Code, ShouldEqual, http.StatusMethodNotAllowed)
			So(w.Header().Get("Allow"), ShouldEqual, "GET")

			w = serve(mux, "GET", "/api/refresh")
			So(w.Code, ShouldEqual, http.StatusMethodNotAllowed)
		})
	})
}

func TestOptions(t *testing.T) {
	Convey("Given the options endpoint", t, func() {
		deps := newMockDependencies()
		mux := http.NewServeMux()
		api.NewServer(deps, &mockStatsProvider{}).Register(context.Background(), mux)

		Convey("When it is requested", func() {
			w := serve(mux, "GET", "/api/options")

			Convey("Then every control has its choices", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var body struct {
					Metrics []struct {
						Name  string `json:"name"`
						Label string `json:"label"`
					} `json:"metrics"`
					DefaultMetric  string   `json:"default_metric"`
					Scales         []string `json:"scales"`
					Regions        []string `json:"regions"`
					DefaultRegions []string `json:"default_regions"`
				}
				decodeJSON(w, &body)
				So(len(body.Metrics), ShouldEqual, 10)
				So(body.Metrics[8].Name, ShouldEqual, "totale_casi")
				So(body.Metrics[8].Label, ShouldEqual, "Totale casi")
				So(body.DefaultMetric, ShouldEqual, "totale_casi")
				So(body.Scales, ShouldResemble, []string{"linear", "symlog"})
				So(body.Regions, ShouldResemble, []string{"Lombardia", "Veneto", "Lazio"})
				So(body.DefaultRegions, ShouldResemble, []string{"Lombardia", "Veneto"})
			})
		})

		Convey("When the dataset is unavailable", func() {
			deps.err = model.ErrDataUnavailable
			w := serve(mux, "GET", "/api/options")

			Convey("Then the response is 503 data_unavailable", func() {
				So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
				var body errorBody
				decodeJSON(w, &body)
				So(body.Code, ShouldEqual, "data_unavailable")
			})
		})
	})
}

func TestView(t *testing.T) {
	Convey("Given the view endpoint", t, func() {
		deps := newMockDependencies()
		mux := http.NewServeMux()
		api.NewServer(deps, &mockStatsProvider{}).Register(context.Background(), mux)

		Convey("When no parameters are given", func() {
			w := serve(mux, "GET", "/api/view")

			Convey("Then defaults apply: total cases, cumulative, preset regions", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var v view.View
				decodeJSON(w, &v)
				So(v.Metric, ShouldEqual, model.TotalCases)
				So(v.Mode, ShouldEqual, model.Cumulative)
				So(v.Heading, ShouldEqual, "Dato totale")
				So(v.Regions, ShouldResemble, []string{"Lombardia", "Veneto"})
				So(len(v.National.Points), ShouldEqual, 3)
				So(v.National.Scale, ShouldEqual, model.Linear)
				So(v.EmptySelection, ShouldBeFalse)
			})
		})

		Convey("When the dashboard's own labels are used", func() {
			w := serve(mux, "GET", "/api/view?metric=deceduti&mode=giorno+per+giorno&scale=log&region=Lazio")

			Convey("Then they are understood", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var v view.View
				decodeJSON(w, &v)
				So(v.Metric, ShouldEqual, model.Deceased)
				So(v.Mode, ShouldEqual, model.DailyChange)
				So(v.Heading, ShouldEqual, "Variazione giorno-per-giorno")
				So(v.Regional.Scale, ShouldEqual, model.SymLog)
				So(len(v.Regional.Points), ShouldEqual, 1)
				So(v.Regional.Points[0].Value, ShouldAlmostEqual, 0.4, 1e-9)
			})
		})

		Convey("When region is present but empty", func() {
			w := serve(mux, "GET", "/api/view?region=")

			Convey("Then the selection is empty rather than the preset", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.lastReq.Regions, ShouldBeEmpty)
				var v view.View
				decodeJSON(w, &v)
				So(v.EmptySelection, ShouldBeTrue)
				So(v.Regional.Points, ShouldBeEmpty)
			})
		})

		Convey("When regions are given as a comma list and repeated keys", func() {
			w := serve(mux, "GET", "/api/view?region=Veneto,%20Lazio&region=Lazio")

			Convey("Then they are merged without duplicates", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.lastReq.Regions, ShouldResemble, []string{"Veneto", "Lazio"})
			})
		})

		Convey("When parameters are invalid", func() {
			for _, target := range []string{
				"/api/view?metric=note",
				"/api/view?mode=weekly",
				"/api/view?scale=sqrt",
			} {
				w := serve(mux, "GET", target)
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				var body errorBody
				decodeJSON(w, &body)
				So(body.Code, ShouldEqual, "bad_request")
			}
		})

		Convey("When the dataset cannot be loaded", func() {
			deps.err = errors.Join(model.ErrDataUnavailable, errors.New("connection refused"))
			w := serve(mux, "GET", "/api/view")

			Convey("Then the error is 503 with the cause", func() {
				So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
				var body errorBody
				decodeJSON(w, &body)
				So(body.Message, ShouldContainSubstring, "connection refused")
			})
		})

		Convey("When an unexpected error happens", func() {
			deps.err = errors.New("boom")
			w := serve(mux, "GET", "/api/view")
			So(w.Code, ShouldEqual, http.StatusInternalServerError)
		})
	})
}

func TestSeries(t *testing.T) {
	Convey("Given the series endpoints", t, func() {
		deps := newMockDependencies()
		mux := http.NewServeMux()
		api.NewServer(deps, &mockStatsProvider{}).Register(context.Background(), mux)

		Convey("When the national daily series is requested", func() {
			w := serve(mux, "GET", "/api/series/national?mode=daily-change")

			Convey("Then the first date is dropped and the rest differenced", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var body struct {
					DatasetID string        `json:"dataset_id"`
					Points    []model.Point `json:"points"`
				}
				decodeJSON(w, &body)
				So(body.DatasetID, ShouldEqual, "ds-1")
				So(len(body.Points), ShouldEqual, 2)
				So(body.Points[0].Value, ShouldEqual, 189-125)
				So(body.Points[1].Value, ShouldEqual, 275-189)
			})
		})

		Convey("When a value cannot be encoded", func() {
			bad := deps.ds.Records[0]
			bad.Values[model.TotalCases] = math.NaN()
			deps.ds = &model.Dataset{ID: "ds-nan", Records: []model.Record{bad}}
			w := serve(mux, "GET", "/api/series/national")

			Convey("Then the response is a 500 with a JSON body instead of an empty 200", func() {
				So(w.Code, ShouldEqual, http.StatusInternalServerError)
				var body errorBody
				decodeJSON(w, &body)
				So(body.Code, ShouldEqual, "internal_error")
				So(body.Message, ShouldContainSubstring, "unsupported value")
			})
		})

		Convey("When the regional series has an empty selection", func() {
			w := serve(mux, "GET", "/api/series/regions?region=")

			Convey("Then points and regions are empty arrays", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, `"points":[]`)
				So(w.Body.String(), ShouldContainSubstring, `"regions":[]`)
			})
		})

		Convey("When the regional series uses the preset", func() {
			w := serve(mux, "GET", "/api/series/regions")

			Convey("Then only preset regions appear", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var body struct {
					Regions []string            `json:"regions"`
					Points  []model.RegionPoint `json:"points"`
				}
				decodeJSON(w, &body)
				So(body.Regions, ShouldResemble, []string{"Lombardia", "Veneto"})
				So(len(body.Points), ShouldEqual, 6)
			})
		})
	})
}

func TestChart(t *testing.T) {
	Convey("Given the chart endpoints", t, func() {
		deps := newMockDependencies()
		mux := http.NewServeMux()
		api.NewServer(deps, &mockStatsProvider{}).Register(context.Background(), mux)

		for _, target := range []string{
			"/api/chart/national.png",
			"/api/chart/national.png?scale=symlog&mode=daily-change",
			"/api/chart/regions.png?region=Lazio&region=Veneto",
			"/api/chart/regions.png?region=",
		} {
			Convey("Then "+target+" returns a PNG", func() {
				w := serve(mux, "GET", target)
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Header().Get("Content-Type"), ShouldEqual, "image/png")
				So(w.Header().Get("ETag"), ShouldEqual, `"ds-1"`)
				img, err := png.Decode(bytes.NewReader(w.Body.Bytes()))
				So(err, ShouldBeNil)
				So(img.Bounds().Dx(), ShouldEqual, 320)
			})
		}

		Convey("When the scale is invalid", func() {
			w := serve(mux, "GET", "/api/chart/national.png?scale=cubic")
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestRefresh(t *testing.T) {
	Convey("Given the refresh endpoint", t, func() {
		deps := newMockDependencies()
		mux := http.NewServeMux()
		api.NewServer(deps, &mockStatsProvider{}).Register(context.Background(), mux)

		Convey("When a refresh succeeds", func() {
			w := serve(mux, "POST", "/api/refresh")

			Convey("Then the new dataset is summarized", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.refreshes, ShouldEqual, 1)
				var body map[string]interface{}
				decodeJSON(w, &body)
				So(body["dataset_id"], ShouldEqual, "ds-1")
				So(body["records"], ShouldEqual, float64(8))
				So(body["regions"], ShouldEqual, float64(3))
				So(body["first_date"], ShouldEqual, "2020-03-01")
				So(body["last_date"], ShouldEqual, "2020-03-03")
			})
		})

		Convey("When a refresh fails", func() {
			deps.refreshErr = model.ErrDataUnavailable
			w := serve(mux, "POST", "/api/refresh")
			So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
		})

		Convey("When the cache is dropped", func() {
			w := serve(mux, "DELETE", "/api/cache")

			Convey("Then it answers with no content", func() {
				So(w.Code, ShouldEqual, http.StatusNoContent)
				So(w.Body.Len(), ShouldEqual, 0)
				So(deps.invalids, ShouldEqual, 1)
				So(deps.refreshes, ShouldEqual, 0)
			})
		})

		Convey("When the cache is read with the wrong method", func() {
			w := serve(mux, "GET", "/api/cache")
			So(w.Code, ShouldEqual, http.StatusMethodNotAllowed)
			So(deps.invalids, ShouldEqual, 0)
		})

		Convey("When dropping the cache fails", func() {
			deps.invalidErr = errors.New("service not started")
			w := serve(mux, "DELETE", "/api/cache")
			So(w.Code, ShouldEqual, http.StatusInternalServerError)
		})
	})
}

func TestErrorKinds(t *testing.T) {
	Convey("Given wrapped API errors", t, func() {
		cause := errors.New("cause")
		err := api.WrapKind("api.op", api.ErrUnavailable, cause)

		Convey("Then both kind and cause match", func() {
			So(errors.Is(err, api.ErrUnavailable), ShouldBeTrue)
			So(errors.Is(err, cause), ShouldBeTrue)
			So(err.Error(), ShouldEqual, "api.op: data unavailable: cause")
		})
	})
}
