package implementations

import (
	"context"
	"fmt"
	"time"

	"cuenca-ubate/internal/domain/admin"
	"cuenca-ubate/internal/domain/notification"
	"cuenca-ubate/internal/observability"
)

// AdminService handles admin login and password changes
type AdminService struct {
	auth           admin.Authenticator
	sender         notification.Sender // can be nil
	adminEmail     string
	supportContact string
	logger         *observability.Logger
	now            func() time.Time
}

// NewAdminService creates an admin service. Password change notices go to
// adminEmail when both it and sender are set.
func NewAdminService(auth admin.Authenticator, sender notification.Sender, adminEmail, supportContact string, logger *observability.Logger) *AdminService {
	if logger == nil {
		logger = observability.NewNopLogger()
	}
	if supportContact == "" {
		supportContact = adminEmail
	}
	return &AdminService{
		auth:           auth,
		sender:         sender,
		adminEmail:     adminEmail,
		supportContact: supportContact,
		logger:         logger,
		now:            time.Now,
	}
}

var _ admin.Service = (*AdminService)(nil)

// Login checks the credentials and opens a session
func (s *AdminService) Login(ctx context.Context, creds admin.Credentials) (admin.Session, error) {
	creds, err := creds.Validate()
	if err != nil {
		return admin.Session{}, err
	}

	ok, err := s.auth.Verify(ctx, creds.Username, creds.Password)
	if err != nil {
		s.logger.Error(ctx).Err(err).Str("username", creds.Username).Msg("Credential check failed")
		return admin.Session{}, fmt.Errorf("failed to verify credentials: %w", err)
	}
	if !ok {
		s.logger.Warn(ctx).Str("username", creds.Username).Msg("Rejected admin login")
		return admin.Session{}, admin.ErrInvalidCredentials
	}

	s.logger.Info(ctx).Str("username", creds.Username).Msg("Admin logged in")
	return admin.Session{Username: creds.Username, LoggedAt: s.now()}, nil
}

// ChangePassword validates the form, changes the password and emails a notice.
// A refused change comes back with Success unset and a nil error.
func (s *AdminService) ChangePassword(ctx context.Context, change admin.PasswordChange) (admin.ChangeResult, error) {
	change, err := change.Validate()
	if err != nil {
		return admin.ChangeResult{Message: admin.Message(err)}, err
	}

	res, err := s.auth.ChangePassword(ctx, change.Username, change.CurrentPassword, change.NewPassword)
	if err != nil {
		s.logger.Error(ctx).Err(err).Str("username", change.Username).Msg("Password change failed")
		return admin.ChangeResult{Message: admin.Message(err)}, err
	}
	if !res.Success {
		if res.Message == "" {
			res.Message = "Error al cambiar contraseña"
		}
		return res, nil
	}

	s.logger.Info(ctx).Str("username", change.Username).Msg("Admin password changed")
	s.notify(ctx, change, &res)
	return res, nil
}

func (s *AdminService) notify(ctx context.Context, change admin.PasswordChange, res *admin.ChangeResult) {
	if s.sender == nil || s.adminEmail == "" {
		return
	}
	msg := notification.PasswordChangeNotice(change.Username, s.supportContact, change.RemoteAddr, s.now())
	to := notification.Recipient{Name: change.Username, Email: s.adminEmail}
	if err := s.sender.Send(ctx, to, msg); err != nil {
		s.logger.Warn(ctx).Err(err).Msg("Password change notice failed")
		res.NoticeError = "Error enviando notificación"
		return
	}
	res.NoticeSent = true
}
