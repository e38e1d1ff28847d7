package service

import (
	"context"
	"fmt"
	"time"

	"github.com/projectxs/backend/internal/apperror"
	"github.com/projectxs/backend/internal/mail"
	"github.com/projectxs/backend/internal/model"
	"github.com/projectxs/backend/internal/repository"
)

// =========================================================================
// FAKES AND HELPERS
// =========================================================================

// fakeUserRepo is an in-memory repository.UserRepository. A hand-written
// fake (not a mock framework) keeps tests dependency-free and readable —
// what the fake does is exactly what you see.
type fakeUserRepo struct {
	users  map[string]*model.User // keyed by internal ID
	nextID int

	// error injection
	createErr error
	updateErr error

	// allocatorFull makes PublicIDExists always answer true, simulating
	// a fully occupied ID space.
	allocatorFull bool
}

var _ repository.UserRepository = (*fakeUserRepo)(nil)

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*model.User)}
}

func (f *fakeUserRepo) Create(_ context.Context, user *model.User) error {
	if f.createErr != nil {
		return f.createErr
	}
	for _, u := range f.users {
		if u.Username == user.Username {
			return apperror.Conflict("user", user.Username)
		}
		if u.PublicID == user.PublicID {
			return apperror.Conflict("user", user.PublicID)
		}
		if user.GoogleID != "" && u.GoogleID == user.GoogleID {
			return apperror.Conflict("user", user.GoogleID)
		}
		if user.AppleID != "" && u.AppleID == user.AppleID {
			return apperror.Conflict("user", user.AppleID)
		}
	}
	f.nextID++
	user.ID = fmt.Sprintf("fake-%d", f.nextID)
	user.CreatedAt = time.Now()
	f.users[user.ID] = user
	return nil
}

func (f *fakeUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	if u, ok := f.users[id]; ok {
		return u, nil
	}
	return nil, apperror.NotFound("user", id)
}

func (f *fakeUserRepo) find(match func(*model.User) bool, describe string) (*model.User, error) {
	for _, u := range f.users {
		if match(u) {
			return u, nil
		}
	}
	return nil, apperror.NotFound("user", describe)
}

func (f *fakeUserRepo) GetByUsername(_ context.Context, username string) (*model.User, error) {
	return f.find(func(u *model.User) bool { return u.Username == username }, username)
}

func (f *fakeUserRepo) GetByPublicID(_ context.Context, publicID string) (*model.User, error) {
	return f.find(func(u *model.User) bool { return u.PublicID == publicID }, publicID)
}

func (f *fakeUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	return f.find(func(u *model.User) bool { return u.Email == email }, email)
}

func (f *fakeUserRepo) GetByProviderID(_ context.Context, provider model.Provider, providerID string) (*model.User, error) {
	return f.find(func(u *model.User) bool {
		switch provider {
		case model.ProviderGoogle:
			return u.GoogleID == providerID
		case model.ProviderApple:
			return u.AppleID == providerID
		}
		return false
	}, providerID)
}

func (f *fakeUserRepo) Search(_ context.Context, username, publicID string) (*model.User, error) {
	return f.find(func(u *model.User) bool {
		if username != "" && u.Username != username {
			return false
		}
		if publicID != "" && u.PublicID != publicID {
			return false
		}
		return username != "" || publicID != ""
	}, username+"#"+publicID)
}

func (f *fakeUserRepo) Update(_ context.Context, id string, upd repository.UserUpdate) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	u, ok := f.users[id]
	if !ok {
		return apperror.NotFound("user", id)
	}
	if upd.Email != nil {
		u.Email = *upd.Email
	}
	if upd.EmailVerified != nil {
		u.EmailVerified = *upd.EmailVerified
	}
	if upd.Avatar != nil {
		u.Avatar = *upd.Avatar
	}
	if upd.GoogleID != nil {
		u.GoogleID = *upd.GoogleID
	}
	if upd.AppleID != nil {
		u.AppleID = *upd.AppleID
	}
	if upd.VerificationCode != nil {
		u.VerificationCode = *upd.VerificationCode
		u.VerificationExpires = upd.VerificationExpires
	}
	if upd.ClearVerification {
		u.VerificationCode = ""
		u.VerificationExpires = nil
	}
	return nil
}

func (f *fakeUserRepo) PublicIDExists(_ context.Context, publicID string) (bool, error) {
	if f.allocatorFull {
		return true, nil
	}
	_, err := f.GetByPublicID(context.Background(), publicID)
	return err == nil, nil
}

func (f *fakeUserRepo) Count(_ context.Context) (int, error) {
	return len(f.users), nil
}

// fakeDispatcher records every email instead of sending it.
type fakeDispatcher struct {
	sent    []fakeEmail
	sendErr error
}

type fakeEmail struct {
	to, subject, html string
}

var _ mail.Dispatcher = (*fakeDispatcher)(nil)

func (d *fakeDispatcher) Send(_ context.Context, to, subject, html string) error {
	if d.sendErr != nil {
		return d.sendErr
	}
	d.sent = append(d.sent, fakeEmail{to: to, subject: subject, html: html})
	return nil
}
