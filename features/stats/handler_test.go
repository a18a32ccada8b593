package stats

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"retitle/features/job"
)

type MockJobLister struct{ mock.Mock }

func (m *MockJobLister) List(ctx context.Context) ([]job.Job, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]job.Job), args.Error(1)
}

func TestHandler_GetStats_Table(t *testing.T) {
	tests := []struct {
		name       string
		setupMocks func(*MockJobLister)
		wantStatus int
		wantError  bool
		checkBody  func(*testing.T, map[string]interface{})
	}{
		{
			name: "Success",
			setupMocks: func(j *MockJobLister) {
				j.On("List", mock.Anything).Return([]job.Job{
					{ID: "1", Status: job.StatusCompleted},
					{ID: "2", Status: job.StatusFailed},
					{ID: "3", Status: job.StatusFailed},
					{ID: "4", Status: job.StatusGenerating},
				}, nil)
			},
			wantStatus: http.StatusOK,
			checkBody: func(t *testing.T, body map[string]interface{}) {
				data := body["data"].(map[string]interface{})
				assert.EqualValues(t, 4, data["total"])
				assert.EqualValues(t, 1, data["active"])
				assert.EqualValues(t, 1, data["completed"])
				assert.EqualValues(t, 2, data["failed_jobs"])
				byStatus := data["by_status"].(map[string]interface{})
				assert.EqualValues(t, 1, byStatus["GENERATING"])
			},
		},
		{
			name: "Empty",
			setupMocks: func(j *MockJobLister) {
				j.On("List", mock.Anything).Return([]job.Job{}, nil)
			},
			wantStatus: http.StatusOK,
			checkBody: func(t *testing.T, body map[string]interface{}) {
				data := body["data"].(map[string]interface{})
				assert.EqualValues(t, 0, data["total"])
			},
		},
		{
			name: "JobRepo Error",
			setupMocks: func(j *MockJobLister) {
				j.On("List", mock.Anything).Return(nil, errors.New("db error"))
			},
			wantStatus: http.StatusInternalServerError,
			wantError:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mJobs := new(MockJobLister)
			tt.setupMocks(mJobs)

			h := NewHandler(mJobs)
			req := httptest.NewRequest("GET", "/stats", nil)
			w := httptest.NewRecorder()

			h.GetStats(w, req)

			resp := w.Result()
			assert.Equal(t, tt.wantStatus, resp.StatusCode)

			var body map[string]interface{}
			err := json.NewDecoder(resp.Body).Decode(&body)
			assert.NoError(t, err)

			if tt.wantError {
				assert.Contains(t, body, "error")
				errMap := body["error"].(map[string]interface{})
				assert.Equal(t, "INTERNAL_ERROR", errMap["code"])
			} else {
				tt.checkBody(t, body)
			}
		})
	}
}
