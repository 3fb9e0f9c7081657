package storage

import (
	"database/sql"
	"time"
)

// Song is one scanned song directory's audio source, keyed by content
// hash so re-scans of an unchanged file are no-ops. Adapted from the
// teacher's Track/UpsertTrack (internal/storage/tracks.go), dropping the
// generated-protobuf Track message in favor of a plain struct.
type Song struct {
	ID              int64
	ContentHash     string
	Path            string
	Title           string
	Artist          string
	AudioSampleRate int
	DurationSeconds float64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// UpsertSong inserts or updates a song by content hash.
func (d *DB) UpsertSong(s *Song) (int64, error) {
	result, err := d.db.Exec(`
		INSERT INTO songs (content_hash, path, title, artist, audio_sample_rate, duration_seconds, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(content_hash) DO UPDATE SET
			path = excluded.path,
			title = excluded.title,
			artist = excluded.artist,
			audio_sample_rate = excluded.audio_sample_rate,
			duration_seconds = excluded.duration_seconds,
			updated_at = CURRENT_TIMESTAMP
	`, s.ContentHash, s.Path, s.Title, s.Artist, s.AudioSampleRate, s.DurationSeconds)
	if err != nil {
		return 0, err
	}

	id, err := result.LastInsertId()
	if err != nil || id == 0 {
		row := d.db.QueryRow("SELECT id FROM songs WHERE content_hash = ?", s.ContentHash)
		if scanErr := row.Scan(&id); scanErr != nil {
			return 0, scanErr
		}
	}
	return id, nil
}

// GetSongByHash retrieves a song by content hash.
func (d *DB) GetSongByHash(hash string) (*Song, error) {
	s := &Song{}
	row := d.db.QueryRow(`
		SELECT id, content_hash, path, title, artist, audio_sample_rate, duration_seconds, created_at, updated_at
		FROM songs WHERE content_hash = ?
	`, hash)
	if err := scanSong(row, s); err != nil {
		return nil, err
	}
	return s, nil
}

// GetSong retrieves a song by its catalog ID, used by the chart-generation
// worker to resolve a queued job's song_id back to its audio path.
func (d *DB) GetSong(id int64) (*Song, error) {
	s := &Song{}
	row := d.db.QueryRow(`
		SELECT id, content_hash, path, title, artist, audio_sample_rate, duration_seconds, created_at, updated_at
		FROM songs WHERE id = ?
	`, id)
	if err := scanSong(row, s); err != nil {
		return nil, err
	}
	return s, nil
}

// ListSongs returns every catalogued song.
func (d *DB) ListSongs() ([]*Song, error) {
	rows, err := d.db.Query(`
		SELECT id, content_hash, path, title, artist, audio_sample_rate, duration_seconds, created_at, updated_at
		FROM songs ORDER BY title ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Song
	for rows.Next() {
		s := &Song{}
		if err := scanSong(rows, s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSong(row rowScanner, s *Song) error {
	var title, artist sql.NullString
	var sampleRate sql.NullInt64
	var duration sql.NullFloat64
	var createdAt, updatedAt sql.NullTime

	err := row.Scan(&s.ID, &s.ContentHash, &s.Path, &title, &artist, &sampleRate, &duration, &createdAt, &updatedAt)
	if err != nil {
		return err
	}
	s.Title = title.String
	s.Artist = artist.String
	s.AudioSampleRate = int(sampleRate.Int64)
	s.DurationSeconds = duration.Float64
	s.CreatedAt = createdAt.Time
	s.UpdatedAt = updatedAt.Time
	return nil
}

// Chart is one generated chart's catalog record: which song it belongs
// to, at which difficulty, where its chart file and checksum live, and
// the generator provenance needed to reproduce it bit-for-bit (spec.md §8
// scenario 6).
type Chart struct {
	ID               int64
	SongID           int64
	Difficulty       string
	Rating           int
	NotesPerSecond   float64
	GeneratorSeed    int64
	GeneratorVersion string
	ChartPath        string
	Checksum         string
	CreatedAt        time.Time
}

// UpsertChart inserts or replaces a song's chart at a given difficulty.
func (d *DB) UpsertChart(c *Chart) (int64, error) {
	result, err := d.db.Exec(`
		INSERT INTO charts (song_id, difficulty, rating, notes_per_second, generator_seed, generator_version, chart_path, checksum)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(song_id, difficulty) DO UPDATE SET
			rating = excluded.rating,
			notes_per_second = excluded.notes_per_second,
			generator_seed = excluded.generator_seed,
			generator_version = excluded.generator_version,
			chart_path = excluded.chart_path,
			checksum = excluded.checksum
	`, c.SongID, c.Difficulty, c.Rating, c.NotesPerSecond, c.GeneratorSeed, c.GeneratorVersion, c.ChartPath, c.Checksum)
	if err != nil {
		return 0, err
	}

	id, err := result.LastInsertId()
	if err != nil || id == 0 {
		row := d.db.QueryRow("SELECT id FROM charts WHERE song_id = ? AND difficulty = ?", c.SongID, c.Difficulty)
		if scanErr := row.Scan(&id); scanErr != nil {
			return 0, scanErr
		}
	}
	return id, nil
}

// ListChartsForSong returns every generated difficulty for a song.
func (d *DB) ListChartsForSong(songID int64) ([]*Chart, error) {
	rows, err := d.db.Query(`
		SELECT id, song_id, difficulty, rating, notes_per_second, generator_seed, generator_version, chart_path, checksum, created_at
		FROM charts WHERE song_id = ? ORDER BY rating ASC
	`, songID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Chart
	for rows.Next() {
		c := &Chart{}
		if err := rows.Scan(&c.ID, &c.SongID, &c.Difficulty, &c.Rating, &c.NotesPerSecond,
			&c.GeneratorSeed, &c.GeneratorVersion, &c.ChartPath, &c.Checksum, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
