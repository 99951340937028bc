package session

import (
	"errors"
	"testing"
	"time"

	"github.com/heliosensium/site/internal/models"
	jwtpkg "github.com/heliosensium/site/internal/pkg/jwt"
	"github.com/heliosensium/site/internal/testutil"
	"gorm.io/gorm"
)

func TestIssueAndResolve(t *testing.T) {
	db := testutil.NewDB(t)
	jwtpkg.SetSecret("session-test")

	issued, err := Issue(db, "user-1", " 10.0.0.1 ", "curl", time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if issued.Session.IP != "10.0.0.1" {
		t.Errorf("expected trimmed ip, got %q", issued.Session.IP)
	}

	claims, err := Resolve(db, issued.Token)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if claims.SessionID != issued.Session.ID {
		t.Errorf("expected sid %s, got %s", issued.Session.ID, claims.SessionID)
	}
}

func TestRevokedSessionIsInactive(t *testing.T) {
	db := testutil.NewDB(t)
	jwtpkg.SetSecret("session-test")

	issued, err := Issue(db, "user-1", "", "", time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if err := Revoke(db, "user-1", issued.Session.ID); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if _, err := Resolve(db, issued.Token); !errors.Is(err, ErrInactive) {
		t.Errorf("expected ErrInactive, got %v", err)
	}
	if err := Revoke(db, "user-1", issued.Session.ID); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Errorf("expected second revoke to miss, got %v", err)
	}
}

func TestPurgeExpired(t *testing.T) {
	db := testutil.NewDB(t)
	old := time.Now().Add(-48 * time.Hour)
	rows := []models.UserSession{
		{UserID: "u", ExpiresAt: old},
		{UserID: "u", ExpiresAt: time.Now().Add(time.Hour), RevokedAt: &old},
		{UserID: "u", ExpiresAt: time.Now().Add(time.Hour)},
	}
	if err := db.Create(&rows).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}

	n, err := PurgeExpired(db, time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 purged, got %d", n)
	}
	var left int64
	db.Model(&models.UserSession{}).Count(&left)
	if left != 1 {
		t.Errorf("expected 1 remaining, got %d", left)
	}
}
