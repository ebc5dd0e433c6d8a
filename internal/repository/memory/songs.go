package memory

import (
	"context"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"music_stream/internal/domain"
	apperrors "music_stream/pkg/errors"

	"github.com/google/uuid"
)

type SongRepository struct {
	mu    sync.RWMutex
	songs map[uuid.UUID]*domain.Song
}

func NewSongRepository() *SongRepository {
	return &SongRepository{songs: make(map[uuid.UUID]*domain.Song)}
}

func (r *SongRepository) Create(_ context.Context, song *domain.Song) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.songs {
		if existing.AudioURL == song.AudioURL {
			return apperrors.Validation("Song with this audio already exists")
		}
	}
	s := *song
	r.songs[song.ID] = &s
	return nil
}

func (r *SongRepository) GetByID(_ context.Context, id uuid.UUID) (*domain.Song, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	song, ok := r.songs[id]
	if !ok {
		return nil, apperrors.ErrSongNotFound
	}
	s := *song
	return &s, nil
}

func (r *SongRepository) List(_ context.Context) ([]*domain.Song, error) {
	songs := r.snapshot(func(*domain.Song) bool { return true })
	sort.Slice(songs, func(i, j int) bool { return songs[i].CreatedAt.After(songs[j].CreatedAt) })
	return songs, nil
}

func (r *SongRepository) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.songs[id]; !ok {
		return apperrors.ErrSongNotFound
	}
	delete(r.songs, id)
	return nil
}

func (r *SongRepository) DeleteByAlbum(_ context.Context, albumID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for id, song := range r.songs {
		if song.AlbumID != nil && *song.AlbumID == albumID {
			delete(r.songs, id)
			n++
		}
	}
	return n, nil
}

func (r *SongRepository) Random(_ context.Context, n int) ([]*domain.Song, error) {
	all := r.snapshot(func(*domain.Song) bool { return true })
	rand.Shuffle(len(all), func(i, j int) { all[i], all[j] = all[j], all[i] })
	if len(all) > n {
		all = all[:n]
	}
	return all, nil
}

func (r *SongRepository) Search(_ context.Context, q string, limit int) ([]*domain.Song, error) {
	q = strings.ToLower(q)
	found := r.snapshot(func(s *domain.Song) bool {
		return strings.Contains(strings.ToLower(s.Title), q) || strings.Contains(strings.ToLower(s.Artist), q)
	})
	sort.Slice(found, func(i, j int) bool { return found[i].Title < found[j].Title })
	if len(found) > limit {
		found = found[:limit]
	}
	return found, nil
}

func (r *SongRepository) ListByAlbum(_ context.Context, albumID uuid.UUID) ([]*domain.Song, error) {
	songs := r.snapshot(func(s *domain.Song) bool { return s.AlbumID != nil && *s.AlbumID == albumID })
	sort.Slice(songs, func(i, j int) bool { return songs[i].CreatedAt.Before(songs[j].CreatedAt) })
	return songs, nil
}

func (r *SongRepository) attach(songID, albumID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	song, ok := r.songs[songID]
	if !ok {
		return apperrors.ErrSongNotFound
	}
	id := albumID
	song.AlbumID = &id
	song.UpdatedAt = time.Now()
	return nil
}

func (r *SongRepository) snapshot(keep func(*domain.Song) bool) []*domain.Song {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []*domain.Song{}
	for _, song := range r.songs {
		if keep(song) {
			s := *song
			out = append(out, &s)
		}
	}
	return out
}

func (r *SongRepository) counts() (songs, artists int64) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]struct{})
	for _, song := range r.songs {
		seen[song.Artist] = struct{}{}
	}
	return int64(len(r.songs)), int64(len(seen))
}

type AlbumRepository struct {
	mu     sync.RWMutex
	albums map[uuid.UUID]*domain.Album
	songs  *SongRepository
}

func NewAlbumRepository(songs *SongRepository) *AlbumRepository {
	return &AlbumRepository{albums: make(map[uuid.UUID]*domain.Album), songs: songs}
}

func (r *AlbumRepository) Create(_ context.Context, album *domain.Album) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a := *album
	a.Songs = nil
	r.albums[album.ID] = &a
	return nil
}

func (r *AlbumRepository) GetByID(_ context.Context, id uuid.UUID) (*domain.Album, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	album, ok := r.albums[id]
	if !ok {
		return nil, apperrors.ErrAlbumNotFound
	}
	a := *album
	a.Songs = []*domain.Song{}
	return &a, nil
}

func (r *AlbumRepository) List(_ context.Context) ([]*domain.Album, error) {
	albums := r.snapshot(func(*domain.Album) bool { return true })
	sort.Slice(albums, func(i, j int) bool { return albums[i].CreatedAt.After(albums[j].CreatedAt) })
	return albums, nil
}

func (r *AlbumRepository) Search(_ context.Context, q string, limit int) ([]*domain.Album, error) {
	q = strings.ToLower(q)
	found := r.snapshot(func(a *domain.Album) bool {
		return strings.Contains(strings.ToLower(a.Title), q) || strings.Contains(strings.ToLower(a.Artist), q)
	})
	sort.Slice(found, func(i, j int) bool { return found[i].Title < found[j].Title })
	if len(found) > limit {
		found = found[:limit]
	}
	return found, nil
}

func (r *AlbumRepository) AttachSong(_ context.Context, albumID, songID uuid.UUID) error {
	r.mu.Lock()
	album, ok := r.albums[albumID]
	if ok {
		album.UpdatedAt = time.Now()
	}
	r.mu.Unlock()

	if !ok {
		return apperrors.ErrAlbumNotFound
	}
	return r.songs.attach(songID, albumID)
}

func (r *AlbumRepository) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.albums[id]; !ok {
		return apperrors.ErrAlbumNotFound
	}
	delete(r.albums, id)
	return nil
}

func (r *AlbumRepository) snapshot(keep func(*domain.Album) bool) []*domain.Album {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []*domain.Album{}
	for _, album := range r.albums {
		if keep(album) {
			a := *album
			a.Songs = []*domain.Song{}
			out = append(out, &a)
		}
	}
	return out
}

func (r *AlbumRepository) count() int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.albums))
}

type StatsRepository struct {
	users  *UserRepository
	songs  *SongRepository
	albums *AlbumRepository
}

func NewStatsRepository(users *UserRepository, songs *SongRepository, albums *AlbumRepository) *StatsRepository {
	return &StatsRepository{users: users, songs: songs, albums: albums}
}

func (r *StatsRepository) Get(_ context.Context) (*domain.Stats, error) {
	songs, artists := r.songs.counts()
	return &domain.Stats{
		TotalSongs:   songs,
		TotalAlbums:  r.albums.count(),
		TotalUsers:   r.users.count(),
		TotalArtists: artists,
	}, nil
}
