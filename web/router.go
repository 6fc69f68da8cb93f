package web

import (
	"encoding/json"
	"github.com/gorilla/websocket"
	"github.com/lukasz-zimnoch/dexly/voluba"
	"net/http"
)

// timeframeBody is accepted either with a duration string like `5m` or
// with the bucket width in seconds.
type timeframeBody struct {
	Timeframe     string   `json:"timeframe,omitempty"`
	TargetSeconds int64    `json:"targetSeconds"`
	Exchanges     []string `json:"exchanges"`
}

func (s *Server) router() http.Handler {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}

	mux := http.NewServeMux()

	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			s.logger.Warningf("could not upgrade connection: [%v]", err)
			return
		}

		connection := s.keeper.add(conn)
		go s.keeper.keep(connection)

		data, err := json.Marshal(newMessage(s.chart.Snapshot()))
		if err != nil {
			s.logger.Errorf("could not marshal series message: [%v]", err)
			return
		}

		if err := connection.write(websocket.TextMessage, data); err != nil {
			s.keeper.close(conn)
		}
	})

	mux.HandleFunc("/series", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		s.writeJSON(w, http.StatusOK, s.chart.Snapshot())
	})

	mux.HandleFunc("/timeframe", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			timeframe := s.chart.Timeframe()
			s.writeJSON(w, http.StatusOK, &timeframeBody{
				TargetSeconds: timeframe.TargetSeconds,
				Exchanges:     timeframe.WantedExchanges.Slice(),
			})
		case http.MethodPut:
			s.configure(w, r)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})

	return mux
}

func (s *Server) configure(w http.ResponseWriter, r *http.Request) {
	var body timeframeBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "malformed timeframe body", http.StatusBadRequest)
		return
	}

	timeframe := voluba.NewTimeframe(body.TargetSeconds, body.Exchanges...)

	if len(body.Timeframe) > 0 {
		parsed, err := voluba.ParseTimeframe(body.Timeframe, body.Exchanges...)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		timeframe = parsed
	}

	snapshot, err := s.chart.Configure(timeframe)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.logger.Infof("timeframe changed to [%v]", timeframe)

	if err := s.PublishSeries(r.Context(), snapshot); err != nil {
		s.logger.Errorf("could not push series: [%v]", err)
	}

	s.writeJSON(w, http.StatusOK, snapshot)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, value interface{}) {
	data, err := json.Marshal(value)
	if err != nil {
		s.logger.Errorf("could not marshal response: [%v]", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}
