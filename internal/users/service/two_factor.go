package service

import (
	"context"
	"errors"
	"strings"
	"time"

	auditservice "unistay/internal/audit/service"
	userserrors "unistay/internal/users/errors"
	"unistay/internal/users/repository"
	"unistay/internal/users/validator"
	"unistay/pkg/auth"
	mongotx "unistay/pkg/db/mongo"
	apperrors "unistay/pkg/errors"
	"unistay/pkg/logger"
	"unistay/pkg/model"
	"unistay/pkg/sealer"
	"unistay/pkg/validation"

	"github.com/google/uuid"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	"go.mongodb.org/mongo-driver/bson"
	"golang.org/x/crypto/bcrypt"
)

const BackupCodeCount = 8

var totpOpts = totp.ValidateOpts{
	Period:    30,
	Skew:      1,
	Digits:    otp.DigitsSix,
	Algorithm: otp.AlgorithmSHA1,
}

type TwoFactorService interface {
	Setup(ctx context.Context, caller *auth.Principal) (*model.TwoFactorSetup, error)
	Enable(ctx context.Context, caller *auth.Principal, code *model.TwoFactorCode) (*model.TwoFactorEnabled, error)
	Disable(ctx context.Context, caller *auth.Principal, code *model.TwoFactorCode) error
	Verify(ctx context.Context, caller *auth.Principal, code *model.TwoFactorCode) error
}

type twoFactorService struct {
	repo       repository.UserRepository
	validator  *validator.UserValidator
	sealer     *sealer.Sealer
	issuer     string
	bcryptCost int
	audit      auditservice.Recorder
	log        *logger.Logger
	now        func() time.Time
}

func NewTwoFactorService(
	repo repository.UserRepository,
	validator *validator.UserValidator,
	sealer *sealer.Sealer,
	issuer string,
	audit auditservice.Recorder,
	log *logger.Logger,
) TwoFactorService {
	return &twoFactorService{
		repo:       repo,
		validator:  validator,
		sealer:     sealer,
		issuer:     issuer,
		bcryptCost: bcrypt.DefaultCost,
		audit:      audit,
		log:        log,
		now:        mongotx.Now,
	}
}

// Setup generates a fresh secret and stores it as pending until Enable
// confirms the authenticator produces matching codes.
func (s *twoFactorService) Setup(ctx context.Context, caller *auth.Principal) (*model.TwoFactorSetup, error) {
	user, err := s.user(ctx, caller)
	if err != nil {
		return nil, err
	}
	if user.TwoFactor.Enabled {
		return nil, apperrors.Conflict("Two-factor authentication is already enabled")
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      s.issuer,
		AccountName: user.Email,
	})
	if err != nil {
		return nil, apperrors.Internal("Failed to generate two-factor secret", err)
	}

	sealed, err := s.sealer.Seal(key.Secret())
	if err != nil {
		return nil, apperrors.Internal("Failed to store two-factor secret", err)
	}

	if _, err := s.repo.Update(ctx, user.ID, bson.M{"two_factor.pending_secret": sealed}); err != nil {
		s.log.Error("Failed to store pending two-factor secret", "user_id", user.ID, "error", err)
		return nil, apperrors.Internal("Failed to store two-factor secret", err)
	}

	return &model.TwoFactorSetup{
		Secret:     key.Secret(),
		OTPAuthURL: key.URL(),
	}, nil
}

// Enable activates the pending secret and returns single-use backup codes.
// Only bcrypt hashes of the codes are stored.
func (s *twoFactorService) Enable(ctx context.Context, caller *auth.Principal, code *model.TwoFactorCode) (*model.TwoFactorEnabled, error) {
	if err := s.validator.ValidateCode(code); err != nil {
		return nil, validation.ToAppError("Code validation failed", err)
	}

	user, err := s.user(ctx, caller)
	if err != nil {
		return nil, err
	}
	if user.TwoFactor.Enabled {
		return nil, apperrors.Conflict("Two-factor authentication is already enabled")
	}
	if user.TwoFactor.PendingSecret == "" {
		return nil, apperrors.Conflict("Run two-factor setup first")
	}

	if !s.validTOTP(user.TwoFactor.PendingSecret, code.Code) {
		return nil, apperrors.InvalidInput("Invalid two-factor code")
	}

	codes := make([]string, BackupCodeCount)
	hashes := make([]string, BackupCodeCount)
	for i := range codes {
		codes[i] = backupCode()
		hash, err := bcrypt.GenerateFromPassword([]byte(codes[i]), s.bcryptCost)
		if err != nil {
			return nil, apperrors.Internal("Failed to generate backup codes", err)
		}
		hashes[i] = string(hash)
	}

	now := s.now()
	_, err = s.repo.Update(ctx, user.ID, bson.M{
		"two_factor": model.TwoFactor{
			Enabled:          true,
			Secret:           user.TwoFactor.PendingSecret,
			BackupCodeHashes: hashes,
			EnabledAt:        &now,
		},
	})
	if err != nil {
		s.log.Error("Failed to enable two-factor", "user_id", user.ID, "error", err)
		return nil, apperrors.Internal("Failed to enable two-factor authentication", err)
	}

	s.audit.Record(ctx, auditservice.Entry(ctx, "user.2fa.enable", "user", user.ID, nil))
	s.log.Info("Two-factor enabled", "user_id", user.ID)
	return &model.TwoFactorEnabled{BackupCodes: codes}, nil
}

func (s *twoFactorService) Disable(ctx context.Context, caller *auth.Principal, code *model.TwoFactorCode) error {
	user, err := s.check(ctx, caller, code)
	if err != nil {
		return err
	}

	if _, err := s.repo.Update(ctx, user.ID, bson.M{"two_factor": model.TwoFactor{}}); err != nil {
		s.log.Error("Failed to disable two-factor", "user_id", user.ID, "error", err)
		return apperrors.Internal("Failed to disable two-factor authentication", err)
	}

	s.audit.Record(ctx, auditservice.Entry(ctx, "user.2fa.disable", "user", user.ID, nil))
	s.log.Info("Two-factor disabled", "user_id", user.ID)
	return nil
}

func (s *twoFactorService) Verify(ctx context.Context, caller *auth.Principal, code *model.TwoFactorCode) error {
	_, err := s.check(ctx, caller, code)
	return err
}

// check accepts a current TOTP code or an unused backup code. A matching
// backup code is consumed.
func (s *twoFactorService) check(ctx context.Context, caller *auth.Principal, code *model.TwoFactorCode) (*model.User, error) {
	if err := s.validator.ValidateCode(code); err != nil {
		return nil, validation.ToAppError("Code validation failed", err)
	}

	user, err := s.user(ctx, caller)
	if err != nil {
		return nil, err
	}
	if !user.TwoFactor.Enabled {
		return nil, apperrors.Conflict("Two-factor authentication is not enabled")
	}

	if s.validTOTP(user.TwoFactor.Secret, code.Code) {
		return user, nil
	}

	normalized := normalizeBackupCode(code.Code)
	for i, hash := range user.TwoFactor.BackupCodeHashes {
		if bcrypt.CompareHashAndPassword([]byte(hash), []byte(normalized)) != nil {
			continue
		}

		remaining := append(append([]string{}, user.TwoFactor.BackupCodeHashes[:i]...), user.TwoFactor.BackupCodeHashes[i+1:]...)
		if _, err := s.repo.Update(ctx, user.ID, bson.M{"two_factor.backup_code_hashes": remaining}); err != nil {
			return nil, apperrors.Internal("Failed to consume backup code", err)
		}
		user.TwoFactor.BackupCodeHashes = remaining

		s.log.Info("Backup code used", "user_id", user.ID, "remaining", len(remaining))
		return user, nil
	}

	s.log.Warn("Invalid two-factor code", "user_id", user.ID)
	return nil, apperrors.Unauthorized("Invalid two-factor code")
}

func (s *twoFactorService) validTOTP(sealed, code string) bool {
	secret, err := s.sealer.Open(sealed)
	if err != nil {
		s.log.Error("Failed to open two-factor secret", "error", err)
		return false
	}

	ok, err := totp.ValidateCustom(strings.TrimSpace(code), secret, s.now(), totpOpts)
	return err == nil && ok
}

func (s *twoFactorService) user(ctx context.Context, caller *auth.Principal) (*model.User, error) {
	if caller == nil {
		return nil, apperrors.Unauthorized("Sign in required")
	}

	user, err := s.repo.FindByID(ctx, caller.UserID)
	if err != nil {
		if errors.Is(err, userserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("User", caller.UserID)
		}
		return nil, apperrors.Internal("Failed to retrieve user", err)
	}
	return user, nil
}

// backupCode returns ten upper-case hex characters formatted XXXXX-XXXXX.
func backupCode() string {
	raw := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return raw[:5] + "-" + raw[5:10]
}

func normalizeBackupCode(code string) string {
	code = strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(code), " ", ""))
	if len(code) == 10 && !strings.Contains(code, "-") {
		code = code[:5] + "-" + code[5:]
	}
	return code
}
