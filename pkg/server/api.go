package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/realtime-ai/fretwise/pkg/fretboard"
	"github.com/realtime-ai/fretwise/pkg/notemath"
	"github.com/realtime-ai/fretwise/pkg/session"
)

// NoteInfo answers GET /api/note.
type NoteInfo struct {
	Note      notemath.Note `json:"note"`
	Name      string        `json:"name"`
	Frequency float64       `json:"frequency"`
	Nominal   float64       `json:"nominal"`
	Cents     float64       `json:"cents"`
	MIDIKey   *uint8        `json:"midi_key,omitempty"`
}

// handleBoard serves GET /api/board?key=N[&tuning=name][&detected=M]. key
// and detected accept a number (folded into 0..11) or a note name.
func (s *Server) handleBoard(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	key := s.config.Key
	if v := q.Get("key"); v != "" {
		pc, err := parsePitchClass(v)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		key = pc
	}

	tuning := s.config.Tuning
	if tuning.Name == "" {
		tuning = fretboard.StandardTuning
	}
	if v := q.Get("tuning"); v != "" {
		t, ok := fretboard.TuningByName(v)
		if !ok {
			http.Error(w, fmt.Sprintf("unknown tuning %q", v), http.StatusBadRequest)
			return
		}
		tuning = t
	}

	var detected *notemath.PitchClass
	if v := q.Get("detected"); v != "" {
		pc, err := parsePitchClass(v)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		detected = &pc
	}

	writeJSON(w, http.StatusOK, fretboard.NewModel(tuning).Board(key, detected))
}

// handleNote serves GET /api/note?freq=F.
func (s *Server) handleNote(w http.ResponseWriter, r *http.Request) {
	freq, err := strconv.ParseFloat(r.URL.Query().Get("freq"), 64)
	if err != nil {
		http.Error(w, "freq must be a number", http.StatusBadRequest)
		return
	}
	note, err := notemath.FreqToNote(freq)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	cents, _ := notemath.Cents(freq)

	info := NoteInfo{
		Note:      note,
		Name:      note.String(),
		Frequency: freq,
		Nominal:   note.Frequency(),
		Cents:     cents,
	}
	if k, err := note.MIDIKey(); err == nil {
		info.MIDIKey = &k
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Sessions())
}

func (s *Server) handleSessionSnapshot(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.Session(mux.Vars(r)["id"])
	if !ok {
		http.Error(w, ErrSessionNotFound.Error(), http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, sess.Snapshot())
}

// handleHistoryMIDI exports the session's note history as a Standard MIDI
// File.
func (s *Server) handleHistoryMIDI(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	sess, ok := s.Session(id)
	if !ok {
		http.Error(w, ErrSessionNotFound.Error(), http.StatusNotFound)
		return
	}

	sm, err := sess.History().SMF()
	if errors.Is(err, session.ErrEmptyHistory) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if _, err := sm.WriteTo(&buf); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "audio/midi")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", id+".mid"))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func parsePitchClass(v string) (notemath.PitchClass, error) {
	if n, err := strconv.Atoi(v); err == nil {
		return notemath.NewPitchClass(n), nil
	}
	return notemath.ParsePitchClass(v)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[Server] encode response: %v", err)
	}
}
