package handler_test

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	"passtrack/internal/lifecycle/handler"
	"passtrack/internal/lifecycle/service"
	applicationstore "passtrack/internal/lifecycle/store/application"
	approvalstore "passtrack/internal/lifecycle/store/approval"
	photosignstore "passtrack/internal/lifecycle/store/photosign"
	processingstore "passtrack/internal/lifecycle/store/processing"
	tokenstore "passtrack/internal/lifecycle/store/token"
	verificationstore "passtrack/internal/lifecycle/store/verification"
	id "passtrack/pkg/domain"
	auditmemory "passtrack/pkg/platform/audit/store/memory"
	txrunner "passtrack/pkg/platform/tx"
	"passtrack/pkg/testutil"
)

type HandlerSuite struct {
	suite.Suite

	router    chi.Router
	applicant id.UserID
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	svc := service.New(
		applicationstore.NewMemory(),
		tokenstore.NewMemory(),
		photosignstore.NewMemory(),
		verificationstore.NewMemory(),
		processingstore.NewMemory(),
		approvalstore.NewMemory(),
		auditmemory.New(),
		txrunner.NewMemoryRunner(),
		slog.Default(),
	)

	s.router = chi.NewRouter()
	handler.New(svc, slog.Default()).Routes(s.router)
	s.applicant = id.NewUserID()
}

func (s *HandlerSuite) submitBody() map[string]any {
	return map[string]any{
		"applicant_type": "fresh",
		"full_name":      "Asha Kumar",
		"date_of_birth":  "1992-04-17",
		"email":          "asha@example.com",
		"phone":          "9876543210",
		"address":        "12 Lake Road",
		"city":           "Pune",
		"priority":       "normal",
	}
}

func (s *HandlerSuite) TestSubmitApplication() {
	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/applications", s.submitBody())
	req = testutil.WithActor(req, s.applicant.String(), "user")

	rr := testutil.DoRequest(s.router, req)
	testutil.AssertStatus(s.T(), rr, http.StatusCreated)

	resp := testutil.DecodeResponse[struct {
		Application struct {
			ID           string `json:"id"`
			UserID       string `json:"user_id"`
			Status       string `json:"status"`
			CurrentStage string `json:"current_stage"`
			DateOfBirth  string `json:"date_of_birth"`
		} `json:"application"`
	}](s.T(), rr)

	s.Equal(s.applicant.String(), resp.Application.UserID)
	s.Equal("submitted", resp.Application.Status)
	s.Equal("application", resp.Application.CurrentStage)
	s.Equal("1992-04-17", resp.Application.DateOfBirth)
}

func (s *HandlerSuite) TestSubmitMissingFields() {
	body := s.submitBody()
	delete(body, "full_name")

	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/applications", body)
	req = testutil.WithActor(req, s.applicant.String(), "user")

	rr := testutil.DoRequest(s.router, req)
	testutil.AssertStatus(s.T(), rr, http.StatusUnprocessableEntity)
	testutil.AssertErrorCode(s.T(), rr, "validation_error")
}

func (s *HandlerSuite) TestSubmitNullBody() {
	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/applications", json.RawMessage("null"))
	req = testutil.WithActor(req, s.applicant.String(), "user")

	rr := testutil.DoRequest(s.router, req)
	testutil.AssertStatus(s.T(), rr, http.StatusBadRequest)
	testutil.AssertErrorCode(s.T(), rr, "bad_request")
}

func (s *HandlerSuite) TestSubmitWithoutActor() {
	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/applications", s.submitBody())

	rr := testutil.DoRequest(s.router, req)
	testutil.AssertStatus(s.T(), rr, http.StatusUnauthorized)
}

func (s *HandlerSuite) TestGetApplicationScopedToOwner() {
	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/applications", s.submitBody())
	req = testutil.WithActor(req, s.applicant.String(), "user")
	rr := testutil.DoRequest(s.router, req)
	testutil.AssertStatus(s.T(), rr, http.StatusCreated)

	created := testutil.DecodeResponse[struct {
		Application struct {
			ID string `json:"id"`
		} `json:"application"`
	}](s.T(), rr)

	get := testutil.NewJSONRequest(s.T(), http.MethodGet, "/applications/"+created.Application.ID, nil)
	get = testutil.WithActor(get, s.applicant.String(), "user")
	rr = testutil.DoRequest(s.router, get)
	testutil.AssertStatus(s.T(), rr, http.StatusOK)

	other := testutil.NewJSONRequest(s.T(), http.MethodGet, "/applications/"+created.Application.ID, nil)
	other = testutil.WithActor(other, id.NewUserID().String(), "user")
	rr = testutil.DoRequest(s.router, other)
	testutil.AssertStatus(s.T(), rr, http.StatusForbidden)
}

func (s *HandlerSuite) TestIssueTokenRequiresTokenRole() {
	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/applications", s.submitBody())
	req = testutil.WithActor(req, s.applicant.String(), "user")
	rr := testutil.DoRequest(s.router, req)
	testutil.AssertStatus(s.T(), rr, http.StatusCreated)

	created := testutil.DecodeResponse[struct {
		Application struct {
			ID string `json:"id"`
		} `json:"application"`
	}](s.T(), rr)

	issue := testutil.NewJSONRequest(s.T(), http.MethodPost, "/tokens", map[string]any{
		"application_id": created.Application.ID,
	})
	issue = testutil.WithActor(issue, id.NewUserID().String(), "user")
	rr = testutil.DoRequest(s.router, issue)
	testutil.AssertStatus(s.T(), rr, http.StatusForbidden)

	issue = testutil.NewJSONRequest(s.T(), http.MethodPost, "/tokens", map[string]any{
		"application_id": created.Application.ID,
	})
	issue = testutil.WithActor(issue, id.NewUserID().String(), "token")
	rr = testutil.DoRequest(s.router, issue)
	testutil.AssertStatus(s.T(), rr, http.StatusCreated)

	token := testutil.DecodeResponse[struct {
		Token struct {
			TokenNumber string `json:"token_number"`
			Status      string `json:"status"`
		} `json:"token"`
	}](s.T(), rr)
	s.NotEmpty(token.Token.TokenNumber)
	s.Equal("active", token.Token.Status)
}

func (s *HandlerSuite) TestGetApplicationBadID() {
	req := testutil.NewJSONRequest(s.T(), http.MethodGet, "/applications/not-a-uuid", nil)
	req = testutil.WithActor(req, s.applicant.String(), "user")

	rr := testutil.DoRequest(s.router, req)
	testutil.AssertStatus(s.T(), rr, http.StatusBadRequest)
}

func (s *HandlerSuite) TestListApplicationsCount() {
	for range 3 {
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/applications", s.submitBody())
		req = testutil.WithActor(req, s.applicant.String(), "user")
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatus(s.T(), rr, http.StatusCreated)
	}

	list := testutil.NewJSONRequest(s.T(), http.MethodGet, "/applications?status=submitted", nil)
	list = testutil.WithActor(list, s.applicant.String(), "user")
	rr := testutil.DoRequest(s.router, list)
	testutil.AssertStatus(s.T(), rr, http.StatusOK)

	resp := testutil.DecodeResponse[struct {
		Count int `json:"count"`
	}](s.T(), rr)
	s.Equal(3, resp.Count)
}
