package web

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/digitalnavigator-80/opsnap/internal/fsutil"
	"github.com/digitalnavigator-80/opsnap/internal/history"
	"github.com/digitalnavigator-80/opsnap/internal/snapshot"
)

// Summary is one snapshot in an API listing.
type Summary struct {
	ID          string    `json:"id"`
	ArchivePath string    `json:"archive_path"`
	SizeBytes   int64     `json:"size_bytes"`
	CreatedAt   time.Time `json:"created_at"`
	FactFiles   int       `json:"fact_files,omitempty"`
	Warnings    []string  `json:"warnings,omitempty"`
}

func (s *Server) handleListSnapshots(w http.ResponseWriter, r *http.Request) {
	var summaries []Summary

	if s.index != nil {
		records, err := s.index.List(r.Context(), 0)
		if err != nil {
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("listing runs: %v", err))
			return
		}
		for _, rec := range records {
			summaries = append(summaries, summaryFromRecord(rec))
		}
	} else {
		var err error
		summaries, err = s.scanSnapshotsDir()
		if err != nil {
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("scanning snapshots: %v", err))
			return
		}
	}

	if summaries == nil {
		summaries = []Summary{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"snapshots": summaries})
}

func (s *Server) handleGetSnapshot(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !validSnapshotID(id) {
		writeError(w, http.StatusBadRequest, "invalid snapshot id")
		return
	}

	if s.index != nil {
		rec, err := s.index.Get(r.Context(), id)
		if err == nil {
			writeJSON(w, http.StatusOK, rec)
			return
		}
	}

	archivePath := filepath.Join(s.snapshotsDir, id+".tar.gz")
	info, err := os.Stat(archivePath)
	if err != nil {
		writeError(w, http.StatusNotFound, "snapshot not found")
		return
	}
	writeJSON(w, http.StatusOK, Summary{
		ID:          id,
		ArchivePath: archivePath,
		SizeBytes:   info.Size(),
		CreatedAt:   info.ModTime().UTC(),
	})
}

func (s *Server) handleDownloadArchive(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !validSnapshotID(id) {
		writeError(w, http.StatusBadRequest, "invalid snapshot id")
		return
	}

	// id is a validated timestamp, so the join cannot escape the directory
	archivePath := filepath.Join(s.snapshotsDir, id+".tar.gz")
	info, err := os.Stat(archivePath)
	if err != nil {
		writeError(w, http.StatusNotFound, "archive not found")
		return
	}

	data, err := fsutil.ReadFileScoped(archivePath)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "reading archive")
		return
	}

	w.Header().Set("Content-Type", "application/gzip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", id+".tar.gz"))
	http.ServeContent(w, r, id+".tar.gz", info.ModTime(), bytes.NewReader(data))
}

// scanSnapshotsDir lists archives directly from disk; used when no run
// index is attached.
func (s *Server) scanSnapshotsDir() ([]Summary, error) {
	entries, err := os.ReadDir(s.snapshotsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var summaries []Summary
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".tar.gz") {
			continue
		}
		id := strings.TrimSuffix(name, ".tar.gz")
		if !validSnapshotID(id) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		summaries = append(summaries, Summary{
			ID:          id,
			ArchivePath: filepath.Join(s.snapshotsDir, name),
			SizeBytes:   info.Size(),
			CreatedAt:   info.ModTime().UTC(),
		})
	}

	// newest first, matching the index ordering
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].ID > summaries[j].ID
	})
	return summaries, nil
}

func summaryFromRecord(rec history.Record) Summary {
	return Summary{
		ID:          rec.ID,
		ArchivePath: rec.ArchivePath,
		CreatedAt:   rec.CreatedAt,
		FactFiles:   rec.FactFiles,
		Warnings:    rec.Warnings,
	}
}

func validSnapshotID(id string) bool {
	_, err := time.Parse(snapshot.IDLayout, id)
	return err == nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
