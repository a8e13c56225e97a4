package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/mosaicnetworks/scenegraph/src/field"
	"github.com/mosaicnetworks/scenegraph/src/registry"
	"github.com/mosaicnetworks/scenegraph/src/snapshot"
	"github.com/mosaicnetworks/scenegraph/src/task"
)

// Inspector is what the service reads. It is implemented by
// task.Coordinator.
type Inspector interface {
	Stats() (task.Stats, error)
	NodeSnapshot(address string, deep bool) (snapshot.Snapshot, error)
	SceneSnapshot() (snapshot.Snapshot, error)
	Watch(address, fieldName string) (*field.Port, func(), error)
	Registry() *registry.Registry
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Service is the HTTP inspector of a running engine.
type Service struct {
	sync.Mutex

	bindAddress string
	inspector   Inspector
	mux         *http.ServeMux
	server      *http.Server
	logger      *logrus.Entry
}

// NewService ...
func NewService(bindAddress string, inspector Inspector, logger *logrus.Entry) *Service {
	service := Service{
		bindAddress: bindAddress,
		inspector:   inspector,
		mux:         http.NewServeMux(),
		logger:      logger,
	}

	service.registerHandlers()

	service.server = &http.Server{
		Addr:    bindAddress,
		Handler: service.mux,
	}

	return &service
}

func (s *Service) registerHandlers() {
	s.logger.Debug("Registering inspector handlers")
	s.mux.HandleFunc("/stats", s.makeHandler(s.GetStats))
	s.mux.HandleFunc("/threads", s.makeHandler(s.GetThreads))
	s.mux.HandleFunc("/node/", s.makeHandler(s.GetNode))
	s.mux.HandleFunc("/scene", s.makeHandler(s.GetScene))
	s.mux.HandleFunc("/watch", s.Watch)
	s.mux.Handle("/metrics", promhttp.Handler())
}

func (s *Service) makeHandler(fn func(http.ResponseWriter, *http.Request)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.Lock()
		defer s.Unlock()

		// enable CORS
		w.Header().Set("Access-Control-Allow-Origin", "*")

		fn(w, r)
	}
}

// Handler returns the handler serving the inspector API.
func (s *Service) Handler() http.Handler {
	return s.mux
}

// Serve calls ListenAndServe. This is a blocking call.
func (s *Service) Serve() {
	s.logger.WithField("bind_address", s.bindAddress).Debug("Serving inspector API")

	err := s.server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		s.logger.Error(err)
	}
}

// Shutdown stops the HTTP server.
func (s *Service) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// GetStats ...
func (s *Service) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.inspector.Stats()
	if err != nil {
		s.fail(w, err, "Retrieving stats")
		return
	}

	writeJSON(w, stats)
}

// GetThreads ...
func (s *Service) GetThreads(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.inspector.Registry().Threads())
}

// GetNode returns the snapshot of the node whose address follows /node/.
// Children are included with ?deep=true.
func (s *Service) GetNode(w http.ResponseWriter, r *http.Request) {
	address := strings.TrimPrefix(r.URL.Path, "/node/")
	if address == "" {
		http.Error(w, "missing node address", http.StatusBadRequest)
		return
	}

	deep := false
	if param := r.URL.Query().Get("deep"); param != "" {
		var err error
		deep, err = strconv.ParseBool(param)
		if err != nil {
			s.logger.WithError(err).Errorf("Parsing deep parameter %s", param)
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	snap, err := s.inspector.NodeSnapshot(address, deep)
	if err != nil {
		s.fail(w, err, "Retrieving node")
		return
	}

	writeJSON(w, snap)
}

// GetScene ...
func (s *Service) GetScene(w http.ResponseWriter, r *http.Request) {
	snap, err := s.inspector.SceneSnapshot()
	if err != nil {
		s.fail(w, err, "Retrieving scene")
		return
	}

	writeJSON(w, snap)
}

// WatchEvent is sent on the websocket for each write to the watched field.
type WatchEvent struct {
	Address string      `json:"address"`
	Field   string      `json:"field"`
	Value   interface{} `json:"value"`
}

// Watch upgrades to a websocket and streams the writes to the field given by
// the address and field query parameters until the client goes away.
func (s *Service) Watch(w http.ResponseWriter, r *http.Request) {
	address := r.URL.Query().Get("address")
	fieldName := r.URL.Query().Get("field")
	if address == "" || fieldName == "" {
		http.Error(w, "address and field are required", http.StatusBadRequest)
		return
	}

	port, cancel, err := s.inspector.Watch(address, fieldName)
	if err != nil {
		s.fail(w, err, "Watching field")
		return
	}
	defer cancel()

	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.WithError(err).Error("Upgrading websocket")
		return
	}
	defer ws.Close()

	logger := s.logger.WithFields(logrus.Fields{
		"address": address,
		"field":   fieldName,
	})
	logger.Debug("Watch started")

	// the client never sends anything; reading detects it going away
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case ev := <-port.C():
			err := ws.WriteJSON(WatchEvent{
				Address: address,
				Field:   ev.Field,
				Value:   ev.Value,
			})
			if err != nil {
				logger.WithError(err).Debug("Writing watch event")
				return
			}
		case <-gone:
			logger.WithField("dropped", port.Dropped()).Debug("Watch stopped")
			return
		}
	}
}

func (s *Service) fail(w http.ResponseWriter, err error, msg string) {
	s.logger.WithError(err).Error(msg)

	status := http.StatusInternalServerError
	if errors.Is(err, task.ErrNotFound) {
		status = http.StatusNotFound
	}
	http.Error(w, err.Error(), status)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
