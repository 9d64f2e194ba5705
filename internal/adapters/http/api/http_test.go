package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/okian/epochboard/internal/adapters/http/api"
	"github.com/okian/epochboard/internal/domain/epoch"
	"github.com/okian/epochboard/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

type mockDependencies struct {
	created    []epoch.Cadence
	resolved   epoch.Resolved
	err        error
	lastVer    int64
	lastLimit  int
	lastPlayer string
	lastScore  float64
}

func (m *mockDependencies) CreateLeaderboard(_ context.Context, c epoch.Cadence, hour int) (epoch.State, error) {
	if m.err != nil {
		return epoch.State{}, m.err
	}
	m.created = append(m.created, c)
	start := time.Date(2026, 2, 8, hour, 0, 0, 0, time.UTC)
	return epoch.State{LeaderboardID: "lb-1", Cadence: c, ResetHour: hour, CurrentVersion: 1, CurrentPeriodStart: &start}, nil
}

func (m *mockDependencies) Epoch(context.Context, string) (epoch.Resolved, error) {
	return m.resolved, m.err
}

func (m *mockDependencies) VersionPeriod(_ context.Context, _ string, v int64) (epoch.Resolved, error) {
	m.lastVer = v
	if m.err != nil {
		return epoch.Resolved{}, m.err
	}
	res := m.resolved
	res.Version = v
	return res, nil
}

func (m *mockDependencies) RetainedVersions(_ context.Context, id string) (model.Retained, error) {
	if m.err != nil {
		return model.Retained{}, m.err
	}
	return model.Retained{LeaderboardID: id, CurrentVersion: m.resolved.Version, Versions: []int64{2, 3}}, nil
}

func (m *mockDependencies) SubmitScore(_ context.Context, id, player string, score float64) (model.Submission, error) {
	m.lastPlayer, m.lastScore = player, score
	if m.err != nil {
		return model.Submission{}, m.err
	}
	return model.Submission{LeaderboardID: id, Version: m.resolved.Version, PlayerID: player, Score: score, Updated: true}, nil
}

func (m *mockDependencies) Rank(_ context.Context, _, player string, v int64) (model.Entry, error) {
	m.lastPlayer, m.lastVer = player, v
	if m.err != nil {
		return model.Entry{}, m.err
	}
	return model.Entry{Rank: 2, PlayerID: player, Score: 42}, nil
}

func (m *mockDependencies) TopN(_ context.Context, id string, n int, v int64) (model.Standings, error) {
	m.lastLimit, m.lastVer = n, v
	if m.err != nil {
		return model.Standings{}, m.err
	}
	return model.Standings{LeaderboardID: id, Version: 3, Entries: []model.Entry{{Rank: 1, PlayerID: "ana", Score: 9}}}, nil
}

type mockStatsProvider struct {
	stats map[string]any
}

func (m *mockStatsProvider) GetStats() map[string]any { return m.stats }

func newMux(deps *mockDependencies) *http.ServeMux {
	mux := http.NewServeMux()
	api.NewServer(deps, &mockStatsProvider{stats: map[string]any{"started": true}}, 50).Register(mux)
	return mux
}

func serve(mux *http.ServeMux, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func decode(w *httptest.ResponseRecorder) map[string]any {
	var out map[string]any
	So(json.NewDecoder(w.Body).Decode(&out), ShouldBeNil)
	return out
}

func TestServer_Register(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		start := time.Date(2026, 2, 9, 0, 0, 0, 0, time.UTC)
		deps := &mockDependencies{resolved: epoch.Resolved{
			Version:     2,
			PeriodStart: &start,
			NextReset:   epoch.TimePtr(start.AddDate(0, 0, 1)),
		}}
		mux := newMux(deps)

		Convey("The health endpoint serves metrics", func() {
			w := serve(mux, http.MethodGet, "/healthz", "")
			So(w.Code, ShouldEqual, http.StatusOK)
		})

		Convey("The stats endpoint serves JSON", func() {
			w := serve(mux, http.MethodGet, "/stats", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(decode(w)["started"], ShouldEqual, true)
		})

		Convey("Unknown paths are not found", func() {
			w := serve(mux, http.MethodGet, "/unknown", "")
			So(w.Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("Wrong methods are rejected", func() {
			w := serve(mux, http.MethodDelete, "/leaderboards/lb-1/epoch", "")
			So(w.Code, ShouldEqual, http.StatusMethodNotAllowed)
		})

		Convey("The epoch endpoint returns the resolved tuple", func() {
			w := serve(mux, http.MethodGet, "/leaderboards/lb-1/epoch", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			body := decode(w)
			So(body["leaderboard_id"], ShouldEqual, "lb-1")
			So(body["version"], ShouldEqual, float64(2))
			So(body["period_start"], ShouldEqual, "2026-02-09T00:00:00Z")
			So(body["next_reset"], ShouldEqual, "2026-02-10T00:00:00Z")
		})

		Convey("A static board has null timestamps", func() {
			deps.resolved = epoch.Static()
			body := decode(serve(mux, http.MethodGet, "/leaderboards/lb-1/epoch", ""))
			So(body["version"], ShouldEqual, float64(1))
			So(body["period_start"], ShouldBeNil)
			So(body["next_reset"], ShouldBeNil)
		})
	})
}

func TestLeaderboardHandler(t *testing.T) {
	Convey("Given the leaderboard routes", t, func() {
		deps := &mockDependencies{}
		mux := newMux(deps)

		Convey("Creating a weekly board returns 201", func() {
			w := serve(mux, http.MethodPost, "/leaderboards", `{"cadence":"weekly","reset_hour":3}`)
			So(w.Code, ShouldEqual, http.StatusCreated)
			body := decode(w)
			So(body["id"], ShouldEqual, "lb-1")
			So(body["cadence"], ShouldEqual, "weekly")
			So(body["reset_hour"], ShouldEqual, float64(3))
			So(deps.created, ShouldResemble, []epoch.Cadence{epoch.Weekly})
		})

		Convey("An empty cadence creates a board that never resets", func() {
			w := serve(mux, http.MethodPost, "/leaderboards", `{}`)
			So(w.Code, ShouldEqual, http.StatusCreated)
			So(deps.created, ShouldResemble, []epoch.Cadence{epoch.None})
		})

		Convey("An unknown cadence is a 400", func() {
			w := serve(mux, http.MethodPost, "/leaderboards", `{"cadence":"hourly"}`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(decode(w)["code"], ShouldEqual, "invalid_cadence")
			So(deps.created, ShouldBeEmpty)
		})

		Convey("Malformed JSON is a 400", func() {
			w := serve(mux, http.MethodPost, "/leaderboards", `{`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(decode(w)["code"], ShouldEqual, "bad_request")
		})

		Convey("A bad reset hour from the service is a 400", func() {
			deps.err = epoch.NewKind("period.validate_hour", epoch.ErrInvalidResetHour)
			w := serve(mux, http.MethodPost, "/leaderboards", `{"cadence":"daily","reset_hour":25}`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(decode(w)["code"], ShouldEqual, "invalid_reset_hour")
		})

		Convey("Historical versions are passed through", func() {
			w := serve(mux, http.MethodGet, "/leaderboards/lb-1/versions/4", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(deps.lastVer, ShouldEqual, 4)
		})

		Convey("Non-numeric and non-positive versions are a 400", func() {
			for _, v := range []string{"abc", "0", "-2"} {
				w := serve(mux, http.MethodGet, "/leaderboards/lb-1/versions/"+v, "")
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			}
		})

		Convey("Retained versions are listed", func() {
			w := serve(mux, http.MethodGet, "/leaderboards/lb-1/versions", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			body := decode(w)
			So(body["leaderboard_id"], ShouldEqual, "lb-1")
			So(body["versions"], ShouldResemble, []any{float64(2), float64(3)})
		})

		Convey("Listing versions of an unknown board is a 404", func() {
			deps.err = epoch.NewKind("repository.epoch", epoch.ErrNotFound)
			w := serve(mux, http.MethodGet, "/leaderboards/missing/versions", "")
			So(w.Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("Future versions map to invalid_version_range", func() {
			deps.err = epoch.NewKind("period.start_for_version", epoch.ErrInvalidVersionRange)
			w := serve(mux, http.MethodGet, "/leaderboards/lb-1/versions/9", "")
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(decode(w)["code"], ShouldEqual, "invalid_version_range")
		})
	})
}

func TestScoreAndRankHandlers(t *testing.T) {
	Convey("Given the score and rank routes", t, func() {
		deps := &mockDependencies{resolved: epoch.Resolved{Version: 3}}
		mux := newMux(deps)

		Convey("A valid score is stamped with the current version", func() {
			w := serve(mux, http.MethodPost, "/leaderboards/lb-1/scores", `{"player_id":"ana","score":12.5}`)
			So(w.Code, ShouldEqual, http.StatusOK)
			body := decode(w)
			So(body["version"], ShouldEqual, float64(3))
			So(body["updated"], ShouldEqual, true)
			So(deps.lastScore, ShouldEqual, 12.5)
		})

		Convey("A zero score is accepted", func() {
			w := serve(mux, http.MethodPost, "/leaderboards/lb-1/scores", `{"player_id":"ana","score":0}`)
			So(w.Code, ShouldEqual, http.StatusOK)
		})

		Convey("Missing fields are a 400", func() {
			for _, body := range []string{`{"score":1}`, `{"player_id":"  ","score":1}`, `{"player_id":"ana"}`} {
				w := serve(mux, http.MethodPost, "/leaderboards/lb-1/scores", body)
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			}
		})

		Convey("Rank defaults to the current version", func() {
			w := serve(mux, http.MethodGet, "/leaderboards/lb-1/rank/ana", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(decode(w)["rank"], ShouldEqual, float64(2))
			So(deps.lastVer, ShouldEqual, 0)
		})

		Convey("Rank accepts an explicit version", func() {
			w := serve(mux, http.MethodGet, "/leaderboards/lb-1/rank/ana?version=2", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(deps.lastVer, ShouldEqual, 2)
		})

		Convey("Top defaults the limit and honours version", func() {
			w := serve(mux, http.MethodGet, "/leaderboards/lb-1/top?version=1", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(deps.lastLimit, ShouldEqual, 10)
			So(deps.lastVer, ShouldEqual, 1)
			So(decode(w)["entries"], ShouldHaveLength, 1)
		})

		Convey("Top rejects bad and oversized limits", func() {
			So(serve(mux, http.MethodGet, "/leaderboards/lb-1/top?limit=0", "").Code, ShouldEqual, http.StatusBadRequest)
			So(serve(mux, http.MethodGet, "/leaderboards/lb-1/top?limit=x", "").Code, ShouldEqual, http.StatusBadRequest)
			w := serve(mux, http.MethodGet, "/leaderboards/lb-1/top?limit=51", "")
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(decode(w)["code"], ShouldEqual, "limit_exceeded")
		})
	})
}

func TestErrorMapping(t *testing.T) {
	Convey("Given dependencies that fail", t, func() {
		cases := []struct {
			err    error
			status int
			code   string
		}{
			{epoch.NewKind("repository.epoch", epoch.ErrNotFound), http.StatusNotFound, "not_found"},
			{epoch.WrapKind("resolver.read", epoch.ErrStoreUnavailable, errors.New("dial tcp")), http.StatusServiceUnavailable, "store_unavailable"},
			{fmt.Errorf("wrapped: %w", epoch.ErrInvalidVersionRange), http.StatusBadRequest, "invalid_version_range"},
			{errors.New("boom"), http.StatusInternalServerError, "internal_error"},
		}

		Convey("Each kind maps to its status", func() {
			for _, c := range cases {
				mux := newMux(&mockDependencies{err: c.err})
				w := serve(mux, http.MethodGet, "/leaderboards/lb-1/rank/ana", "")
				So(w.Code, ShouldEqual, c.status)
				So(decode(w)["code"], ShouldEqual, c.code)
			}
		})
	})
}
