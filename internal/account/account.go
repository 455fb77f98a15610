// Package account covers registration and the profile page.
package account

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"taskboard/internal/forms"
	"taskboard/internal/gateway"
	"taskboard/internal/models"
)

// ImagesBucket holds profile pictures.
const ImagesBucket = "images"

var ErrInvalidImageName = errors.New("image file name is empty")

// Gateway is the part of the gateway client account operations need.
type Gateway interface {
	SignUp(ctx context.Context, creds gateway.Credentials) (*gateway.Session, error)
	SignOut(ctx context.Context) error
	GetProfile(ctx context.Context, id string) (models.UserProfile, error)
	InsertProfile(ctx context.Context, p models.UserProfile) (models.UserProfile, error)
	UpdateProfile(ctx context.Context, id string, p gateway.ProfilePatch) (models.UserProfile, error)
	Upload(ctx context.Context, bucket, name, contentType string, body io.Reader) (gateway.UploadResult, error)
	Remove(ctx context.Context, bucket string, names ...string) (int64, error)
}

type Service struct {
	gw  Gateway
	v   *forms.Validator
	log *zap.Logger
	now func() time.Time
}

func NewService(gw Gateway, v *forms.Validator, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{gw: gw, v: v, log: log, now: time.Now}
}

// Register validates the form, creates the account and its profile row, then
// signs out so the user logs in explicitly. Field errors mean nothing was
// sent.
func (s *Service) Register(ctx context.Context, form forms.Register) (forms.FieldErrors, error) {
	if errs := s.v.Check(form); !errs.OK() {
		return errs, nil
	}

	sess, err := s.gw.SignUp(ctx, gateway.Credentials{Email: form.Email, Password: form.Password})
	if err != nil {
		return nil, fmt.Errorf("sign up: %w", err)
	}

	_, err = s.gw.InsertProfile(ctx, models.UserProfile{
		ID:       sess.User.ID,
		Username: strings.TrimSpace(form.Username),
	})
	if signOutErr := s.gw.SignOut(ctx); signOutErr != nil {
		s.log.Warn("sign-out after registration failed", zap.Error(signOutErr))
	}
	if err != nil {
		return nil, fmt.Errorf("create profile: %w", err)
	}
	return nil, nil
}

func (s *Service) LoadProfile(ctx context.Context, id string) (models.UserProfile, error) {
	p, err := s.gw.GetProfile(ctx, id)
	if err != nil {
		return models.UserProfile{}, fmt.Errorf("load profile %s: %w", id, err)
	}
	return p, nil
}

// RenameProfile changes the username.
func (s *Service) RenameProfile(ctx context.Context, id string, form forms.Profile) (models.UserProfile, forms.FieldErrors, error) {
	if errs := s.v.Check(form); !errs.OK() {
		return models.UserProfile{}, errs, nil
	}
	username := strings.TrimSpace(form.Username)
	p, err := s.gw.UpdateProfile(ctx, id, gateway.ProfilePatch{Username: &username})
	if err != nil {
		return models.UserProfile{}, nil, fmt.Errorf("rename profile: %w", err)
	}
	return p, nil, nil
}

// ObjectName is the storage name of an uploaded file: the upload time in
// unix milliseconds, a dash, then the file's base name.
func ObjectName(at time.Time, fileName string) string {
	return strconv.FormatInt(at.UnixMilli(), 10) + "-" + path.Base(strings.ReplaceAll(fileName, "\\", "/"))
}

// objectFromURL returns the object name at the end of a public URL.
func objectFromURL(publicURL string) string {
	if publicURL == "" {
		return ""
	}
	u, err := url.Parse(publicURL)
	if err != nil {
		return ""
	}
	return path.Base(u.Path)
}

// ReplaceProfileImage uploads a new picture and points the profile at it.
// The previous picture is removed first, best-effort.
func (s *Service) ReplaceProfileImage(ctx context.Context, current models.UserProfile, fileName, contentType string, body io.Reader) (models.UserProfile, error) {
	if strings.TrimSpace(fileName) == "" {
		return models.UserProfile{}, ErrInvalidImageName
	}

	if old := objectFromURL(current.ProfileImage); old != "" && old != "." && old != "/" {
		if _, err := s.gw.Remove(ctx, ImagesBucket, old); err != nil {
			s.log.Warn("removing previous profile image failed", zap.String("object", old), zap.Error(err))
		}
	}

	name := ObjectName(s.now(), fileName)
	res, err := s.gw.Upload(ctx, ImagesBucket, name, contentType, body)
	if err != nil {
		return models.UserProfile{}, fmt.Errorf("upload profile image: %w", err)
	}

	p, err := s.gw.UpdateProfile(ctx, current.ID, gateway.ProfilePatch{ProfileImage: &res.URL})
	if err != nil {
		return models.UserProfile{}, fmt.Errorf("save profile image: %w", err)
	}
	return p, nil
}
