package dspacex

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeServer answers commands with canned handlers
type fakeServer struct {
	mu       sync.Mutex
	handlers map[string]func(req map[string]any) map[string]any
	received []map[string]any
	sessions []string
}

func newFakeServer(t *testing.T) (*fakeServer, string) {
	t.Helper()
	fs := &fakeServer{handlers: map[string]func(map[string]any) map[string]any{}}

	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fs.mu.Lock()
		fs.sessions = append(fs.sessions, r.Header.Get(SessionHeader))
		fs.mu.Unlock()
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer ws.Close()
		for {
			var req map[string]any
			if err := ws.ReadJSON(&req); err != nil {
				return
			}
			fs.mu.Lock()
			fs.received = append(fs.received, req)
			h := fs.handlers[req["name"].(string)]
			fs.mu.Unlock()

			resp := map[string]any{"error": true, "error_msg": "unknown command"}
			if h != nil {
				resp = h(req)
			}
			resp["id"] = req["id"]
			if err := ws.WriteJSON(resp); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return fs, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func (fs *fakeServer) handle(name string, h func(map[string]any) map[string]any) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.handlers[name] = h
}

func dial(t *testing.T, url string) *Client {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	c, err := Dial(ctx, url)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestClientFetchRegressionCurves(t *testing.T) {
	fs, url := newFakeServer(t)
	fs.handle(cmdFetchRegression, func(req map[string]any) map[string]any {
		return map[string]any{
			"curves": []any{
				map[string]any{
					"points": [][3]float64{{0, 0, 0}, {1, 1, 1}},
					"colors": [][3]float64{{1, 0, 0}, {0, 0, 1}},
				},
			},
		}
	})
	c := dial(t, url)

	q := Query{DatasetID: 1, Category: "param", Field: "x", K: 8, PersistenceLevel: 3}
	curves, err := c.FetchRegressionCurves(context.Background(), q)
	require.NoError(t, err)
	require.Len(t, curves.Curves, 1)
	assert.Equal(t, [3]float64{1, 1, 1}, curves.Curves[0].Points[1])

	fs.mu.Lock()
	defer fs.mu.Unlock()
	require.Len(t, fs.received, 1)
	req := fs.received[0]
	assert.Equal(t, cmdFetchRegression, req["name"])
	assert.EqualValues(t, 1, req["datasetId"])
	assert.Equal(t, "param", req["category"])
	assert.Equal(t, "x", req["fieldname"])
	assert.EqualValues(t, 8, req["k"])
	assert.EqualValues(t, 3, req["persistenceLevel"])
}

func TestClientServerError(t *testing.T) {
	fs, url := newFakeServer(t)
	fs.handle(cmdFetchExtrema, func(map[string]any) map[string]any {
		return map[string]any{"error": true, "error_msg": "invalid persistence level"}
	})
	c := dial(t, url)

	_, err := c.FetchExtrema(context.Background(), Query{DatasetID: 1})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrServer))

	var se *ServerError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, cmdFetchExtrema, se.Command)
	assert.Equal(t, "invalid persistence level", se.Message)
}

func TestClientEvalSingleSampleShape(t *testing.T) {
	fs, url := newFakeServer(t)
	fs.handle(cmdEvalCrystal, func(req map[string]any) map[string]any {
		return map[string]any{
			"thumbnails":  map[string]any{"data": "AAAA", "width": 2, "height": 2},
			"fieldValues": 0.25,
			"sampleIds":   7,
		}
	})
	c := dial(t, url)

	res, err := c.EvalModelForCrystal(context.Background(), EvalRequest{Crystal: 7, SampleCount: 1, Percent: 0.5})
	require.NoError(t, err)
	require.Len(t, res.Thumbnails, 1)
	assert.Equal(t, 2, res.Thumbnails[0].Width)
	assert.Equal(t, []float64{0.25}, []float64(res.FieldValues))
	assert.Equal(t, []int{7}, []int(res.SampleIDs))

	fs.mu.Lock()
	defer fs.mu.Unlock()
	assert.EqualValues(t, 7, fs.received[0]["crystalID"])
	assert.EqualValues(t, 0.5, fs.received[0]["percent"])
	assert.EqualValues(t, 1, fs.received[0]["numSamples"])
}

func TestClientFetchCrystalPartition(t *testing.T) {
	fs, url := newFakeServer(t)
	fs.handle("fetchCrystal", func(req map[string]any) map[string]any {
		return map[string]any{"crystalSamples": []int{4, 9, 12}}
	})
	c := dial(t, url)

	p, err := c.FetchCrystalPartition(context.Background(), 0, 3, 7)
	require.NoError(t, err)
	assert.Equal(t, []int{4, 9, 12}, p.CrystalSamples)

	fs.mu.Lock()
	defer fs.mu.Unlock()
	require.Len(t, fs.received, 1)
	req := fs.received[0]
	assert.Equal(t, "fetchCrystal", req["name"])
	assert.EqualValues(t, 0, req["datasetId"])
	assert.EqualValues(t, 3, req["persistenceLevel"])
	assert.EqualValues(t, 7, req["crystalID"])
}

func TestClientSendsSessionOnConnect(t *testing.T) {
	fs, url := newFakeServer(t)
	c := dial(t, url)

	require.NotEmpty(t, c.Session())
	fs.mu.Lock()
	defer fs.mu.Unlock()
	require.Len(t, fs.sessions, 1)
	assert.Equal(t, c.Session(), fs.sessions[0])
}

func TestClientConcurrentCalls(t *testing.T) {
	fs, url := newFakeServer(t)
	fs.handle(cmdFetchCrystal, func(req map[string]any) map[string]any {
		id := int(req["crystalID"].(float64))
		return map[string]any{"crystalSamples": []int{id, id * 10}}
	})
	c := dial(t, url)

	var wg sync.WaitGroup
	for i := 1; i <= 8; i++ {
		wg.Add(1)
		go func(crystal int) {
			defer wg.Done()
			p, err := c.FetchCrystalPartition(context.Background(), 1, 3, crystal)
			if assert.NoError(t, err) {
				assert.Equal(t, []int{crystal, crystal * 10}, p.CrystalSamples)
			}
		}(i)
	}
	wg.Wait()
}

func TestClientClosedConnection(t *testing.T) {
	_, url := newFakeServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	c, err := Dial(ctx, url)
	require.NoError(t, err)

	require.NoError(t, c.Close())
	_, err = c.FetchExtrema(context.Background(), Query{})
	assert.True(t, errors.Is(err, ErrClosed))
}

func TestResultTolerantDecoding(t *testing.T) {
	var res EvalResult
	err := json.Unmarshal([]byte(`{"thumbnails":[{"data":"a"},{"data":"b"}],"fieldValues":[1,2],"sampleIds":null}`), &res)
	require.NoError(t, err)
	assert.Len(t, res.Thumbnails, 2)
	assert.Equal(t, []float64{1, 2}, []float64(res.FieldValues))
	assert.Nil(t, res.SampleIDs)

	err = json.Unmarshal([]byte(`{"thumbnails":"oops"}`), &res)
	assert.Error(t, err)
}
