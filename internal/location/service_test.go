package location_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fleetlock/fleetlock/internal/api/models"
	"github.com/fleetlock/fleetlock/internal/location"
)

func float64Ptr(v float64) *float64 { return &v }
func int64Ptr(v int64) *int64       { return &v }
func strPtr(s string) *string       { return &s }

func TestService_Record(t *testing.T) {
	service := location.NewService(location.ServiceConfig{
		Repo: location.NewInMemoryRepository(),
	})
	ctx := context.Background()

	sample, err := service.Record(ctx, "phone-1", &models.LocationUploadRequest{
		Lat:      float64Ptr(52.37),
		Lng:      float64Ptr(4.89),
		Accuracy: float64Ptr(12.5),
		Provider: strPtr("gps"),
	})
	if err != nil {
		t.Fatalf("failed to record sample: %v", err)
	}

	if sample.ID == 0 {
		t.Error("expected sample ID to be assigned")
	}
	if sample.Lat != 52.37 || sample.Lng != 4.89 {
		t.Errorf("unexpected coordinates: %v, %v", sample.Lat, sample.Lng)
	}
	if sample.Provider != "gps" {
		t.Errorf("expected provider gps, got %q", sample.Provider)
	}
}

func TestService_Record_Defaults(t *testing.T) {
	service := location.NewService(location.ServiceConfig{
		Repo: location.NewInMemoryRepository(),
	})

	before := time.Now()
	sample, err := service.Record(context.Background(), "phone-1", &models.LocationUploadRequest{
		Lat: float64Ptr(0),
		Lng: float64Ptr(0),
	})
	if err != nil {
		t.Fatalf("failed to record sample: %v", err)
	}

	// Zero coordinates are legitimate (gulf of Guinea), not missing
	if sample.Lat != 0 || sample.Lng != 0 {
		t.Errorf("expected zero coordinates to be accepted, got %v, %v", sample.Lat, sample.Lng)
	}
	if sample.Accuracy != location.AccuracyUnknown {
		t.Errorf("expected accuracy default %v, got %v", location.AccuracyUnknown, sample.Accuracy)
	}
	if sample.Provider != location.DefaultProvider {
		t.Errorf("expected provider default %q, got %q", location.DefaultProvider, sample.Provider)
	}
	if sample.RecordedAt.Before(before) {
		t.Error("expected recorded_at to default to server time")
	}
}

func TestService_Record_ClientTimestamp(t *testing.T) {
	service := location.NewService(location.ServiceConfig{
		Repo: location.NewInMemoryRepository(),
	})

	epoch := int64(1700000000)
	sample, err := service.Record(context.Background(), "phone-1", &models.LocationUploadRequest{
		Lat:       float64Ptr(52.37),
		Lng:       float64Ptr(4.89),
		Timestamp: int64Ptr(epoch),
	})
	if err != nil {
		t.Fatalf("failed to record sample: %v", err)
	}

	if !sample.RecordedAt.Equal(time.Unix(epoch, 0)) {
		t.Errorf("expected recorded_at %v, got %v", time.Unix(epoch, 0), sample.RecordedAt)
	}
}

func TestService_Record_ValidationErrors(t *testing.T) {
	service := location.NewService(location.ServiceConfig{
		Repo: location.NewInMemoryRepository(),
	})
	ctx := context.Background()

	tests := []struct {
		name      string
		input     *models.LocationUploadRequest
		wantField string
	}{
		{
			name:      "missing lat",
			input:     &models.LocationUploadRequest{Lng: float64Ptr(4.89)},
			wantField: "lat",
		},
		{
			name:      "missing lng",
			input:     &models.LocationUploadRequest{Lat: float64Ptr(52.37)},
			wantField: "lng",
		},
		{
			name:      "lat too large",
			input:     &models.LocationUploadRequest{Lat: float64Ptr(90.01), Lng: float64Ptr(4.89)},
			wantField: "lat",
		},
		{
			name:      "lat too small",
			input:     &models.LocationUploadRequest{Lat: float64Ptr(-90.01), Lng: float64Ptr(4.89)},
			wantField: "lat",
		},
		{
			name:      "lng too large",
			input:     &models.LocationUploadRequest{Lat: float64Ptr(52.37), Lng: float64Ptr(180.01)},
			wantField: "lng",
		},
		{
			name:      "lng too small",
			input:     &models.LocationUploadRequest{Lat: float64Ptr(52.37), Lng: float64Ptr(-180.01)},
			wantField: "lng",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := service.Record(ctx, "phone-1", tt.input)

			var ve *models.ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected validation error, got %v", err)
			}

			found := false
			for _, fe := range ve.Errors {
				if fe.Field == tt.wantField {
					found = true
				}
			}
			if !found {
				t.Errorf("expected error on field %q, got %v", tt.wantField, ve.Errors)
			}
		})
	}
}

func TestService_Record_BoundaryCoordinates(t *testing.T) {
	service := location.NewService(location.ServiceConfig{
		Repo: location.NewInMemoryRepository(),
	})
	ctx := context.Background()

	corners := [][2]float64{
		{90, 180},
		{-90, -180},
		{90, -180},
		{-90, 180},
	}

	for _, c := range corners {
		if _, err := service.Record(ctx, "phone-1", &models.LocationUploadRequest{
			Lat: float64Ptr(c[0]),
			Lng: float64Ptr(c[1]),
		}); err != nil {
			t.Errorf("expected boundary coordinate (%v, %v) to be accepted, got %v", c[0], c[1], err)
		}
	}
}

func TestService_Latest(t *testing.T) {
	service := location.NewService(location.ServiceConfig{
		Repo: location.NewInMemoryRepository(),
	})
	ctx := context.Background()

	if _, err := service.Latest(ctx, "phone-1"); !errors.Is(err, location.ErrNoSamples) {
		t.Fatalf("expected ErrNoSamples for fresh device, got %v", err)
	}

	older := int64(1700000000)
	newer := int64(1700003600)

	for _, ts := range []int64{newer, older} {
		if _, err := service.Record(ctx, "phone-1", &models.LocationUploadRequest{
			Lat:       float64Ptr(52.37),
			Lng:       float64Ptr(4.89),
			Timestamp: int64Ptr(ts),
		}); err != nil {
			t.Fatalf("failed to record sample: %v", err)
		}
	}

	latest, err := service.Latest(ctx, "phone-1")
	if err != nil {
		t.Fatalf("failed to fetch latest: %v", err)
	}
	if !latest.RecordedAt.Equal(time.Unix(newer, 0)) {
		t.Errorf("expected newest sample by recorded_at, got %v", latest.RecordedAt)
	}
}

func TestService_Latest_TieBreaksOnInsertionOrder(t *testing.T) {
	service := location.NewService(location.ServiceConfig{
		Repo: location.NewInMemoryRepository(),
	})
	ctx := context.Background()

	ts := int64(1700000000)
	for i, lat := range []float64{51.0, 52.0} {
		if _, err := service.Record(ctx, "phone-1", &models.LocationUploadRequest{
			Lat:       float64Ptr(lat),
			Lng:       float64Ptr(4.89),
			Timestamp: int64Ptr(ts),
		}); err != nil {
			t.Fatalf("failed to record sample %d: %v", i, err)
		}
	}

	latest, err := service.Latest(ctx, "phone-1")
	if err != nil {
		t.Fatalf("failed to fetch latest: %v", err)
	}
	// Equal timestamps resolve to the later insert
	if latest.Lat != 52.0 {
		t.Errorf("expected the later insert to win the tie, got lat %v", latest.Lat)
	}
}
