package httpapi

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/and161185/scanwin/internal/model"
	"github.com/and161185/scanwin/internal/service"
)

var testSignKey = []byte("test-sign-key")

/************ fakes ************/

type fakeScanSvc struct {
	verifyTok model.ScanToken
	verifyErr error

	submitRes *service.AwardResult
	submitErr error

	gotPayload string
	gotDevice  *model.GeoPoint
	gotImage   []byte
	gotUser    uuid.UUID
	gotSubject string
	gotIP      string
}

func (f *fakeScanSvc) VerifyScan(_ context.Context, raw string, device *model.GeoPoint, subject, ip string) (model.ScanToken, error) {
	f.gotPayload = raw
	f.gotDevice = device
	f.gotSubject = subject
	f.gotIP = ip
	return f.verifyTok, f.verifyErr
}

func (f *fakeScanSvc) SubmitReceipt(_ context.Context, userID uuid.UUID, raw string, device *model.GeoPoint, image []byte, ip string) (*service.AwardResult, error) {
	f.gotUser = userID
	f.gotPayload = raw
	f.gotDevice = device
	f.gotImage = image
	f.gotIP = ip
	return f.submitRes, f.submitErr
}

type fakeProgressSvc struct {
	res *service.AwardResult
	err error

	prog    *model.UserProgress
	progErr error

	gotUser  uuid.UUID
	gotScope string
	gotShare service.ShareEvent
}

func (f *fakeProgressSvc) ContentViewed(_ context.Context, userID uuid.UUID, scope string) (*service.AwardResult, error) {
	f.gotUser, f.gotScope = userID, scope
	return f.res, f.err
}

func (f *fakeProgressSvc) ShareRecorded(_ context.Context, userID uuid.UUID, scope string, share service.ShareEvent) (*service.AwardResult, error) {
	f.gotUser, f.gotScope, f.gotShare = userID, scope, share
	return f.res, f.err
}

func (f *fakeProgressSvc) ReferralGenerated(_ context.Context, userID uuid.UUID, scope string) (*service.AwardResult, error) {
	f.gotUser, f.gotScope = userID, scope
	return f.res, f.err
}

func (f *fakeProgressSvc) Progress(_ context.Context, userID uuid.UUID, scope string) (*model.UserProgress, error) {
	f.gotUser, f.gotScope = userID, scope
	return f.prog, f.progErr
}

/************ helpers ************/

func newTestServer(scan *fakeScanSvc, progress *fakeProgressSvc) http.Handler {
	return New(scan, progress, testSignKey, zap.NewNop()).Router()
}

func mintToken(t *testing.T, userID uuid.UUID) string {
	t.Helper()
	claims := jwt.RegisteredClaims{
		Subject:   userID.String(),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSignKey)
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return signed
}

// receiptForm builds a multipart body with payload, coordinates and an image.
func receiptForm(t *testing.T, payload string, lat, lng string, image []byte) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("payload", payload); err != nil {
		t.Fatalf("write payload: %v", err)
	}
	if lat != "" {
		_ = mw.WriteField("lat", lat)
	}
	if lng != "" {
		_ = mw.WriteField("lng", lng)
	}
	if image != nil {
		fw, err := mw.CreateFormFile("receipt", "receipt.png")
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := fw.Write(image); err != nil {
			t.Fatalf("write image: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close form: %v", err)
	}
	return &buf, mw.FormDataContentType()
}
