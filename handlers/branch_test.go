package handlers

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"courier_track_go/models"
	"courier_track_go/services"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

// setupUpload builds a multipart request carrying a CSV upload
func setupUpload(t *testing.T, path, csvContent string, fields map[string]string) (echo.Context, *httptest.ResponseRecorder) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", "branches.csv")
	assert.NoError(t, err)
	_, err = part.Write([]byte(csvContent))
	assert.NoError(t, err)
	for k, v := range fields {
		assert.NoError(t, writer.WriteField(k, v))
	}
	assert.NoError(t, writer.Close())

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("config", testConfig())
	return c, rec
}

const uploadHeader = "name,code,address,pincode,state,email,latitude,longitude\n"

func createTestBranch(t *testing.T, testDB *gorm.DB, code string) *models.Branch {
	branch := &models.Branch{
		Name: "Branch " + code, Code: code, Address: "12 Main St", Pincode: "400001",
		State: "Maharashtra", Status: models.BranchStatusActive,
	}
	assert.NoError(t, testDB.Create(branch).Error)
	return branch
}

func TestCreateBranchHandler(t *testing.T) {
	testDB := setupTestDB(t)
	user := createTestUser(t, testDB, models.RoleManager)

	create := func(body string) (int, []byte) {
		_, c, rec := setupEcho(http.MethodPost, "/api/branches", strings.NewReader(body))
		c.Request().Header.Set("Content-Type", "application/json")
		authenticate(t, testDB, c, user)
		assert.NoError(t, CreateBranchHandler(c))
		return rec.Code, rec.Body.Bytes()
	}

	t.Run("creates an active branch", func(t *testing.T) {
		code, body := create(`{"name":"Head Office","code":"HO001","address":"12 Main St","pincode":"400001","state":"Maharashtra","email":"ho@example.com"}`)
		assert.Equal(t, http.StatusCreated, code)

		var branch models.Branch
		assert.NoError(t, json.Unmarshal(body, &branch))
		assert.Equal(t, "HO001", branch.Code)
		assert.Equal(t, models.BranchStatusActive, branch.Status)
	})

	t.Run("duplicate code is rejected case-insensitively", func(t *testing.T) {
		code, _ := create(`{"name":"Other","code":"ho001","address":"Elsewhere","pincode":"400002","state":"Maharashtra"}`)
		assert.Equal(t, http.StatusConflict, code)
	})

	t.Run("missing fields return 422", func(t *testing.T) {
		code, _ := create(`{"name":"No Code"}`)
		assert.Equal(t, http.StatusUnprocessableEntity, code)
	})
}

func TestUpdateBranchStatusHandler(t *testing.T) {
	testDB := setupTestDB(t)
	user := createTestUser(t, testDB, models.RoleManager)
	branch := createTestBranch(t, testDB, "ST001")

	setStatus := func(status string) (int, []byte) {
		_, c, rec := setupEcho(http.MethodPatch, "/api/branches/"+branch.ID+"/status",
			strings.NewReader(`{"status":"`+status+`"}`))
		c.Request().Header.Set("Content-Type", "application/json")
		c.SetParamNames("id")
		c.SetParamValues(branch.ID)
		authenticate(t, testDB, c, user)
		assert.NoError(t, UpdateBranchStatusHandler(c))
		return rec.Code, rec.Body.Bytes()
	}

	code, _ := setStatus("closed")
	assert.Equal(t, http.StatusOK, code)

	var stored models.Branch
	assert.NoError(t, testDB.First(&stored, "id = ?", branch.ID).Error)
	assert.Equal(t, models.BranchStatusClosed, stored.Status)

	code, _ = setStatus("demolished")
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestBulkUploadBranchesHandler(t *testing.T) {
	testDB := setupTestDB(t)
	user := createTestUser(t, testDB, models.RoleManager)
	createTestBranch(t, testDB, "DUP01")

	csvContent := uploadHeader +
		"Fresh Branch,FR001,5 FC Road,411004,Maharashtra,,,\n" +
		"Taken Branch,DUP01,Elsewhere,400002,Maharashtra,,,\n"

	t.Run("duplicates return 409 and insert nothing", func(t *testing.T) {
		c, rec := setupUpload(t, "/api/branches/bulk-upload", csvContent, nil)
		authenticate(t, testDB, c, user)

		assert.NoError(t, BulkUploadBranchesHandler(c))
		assert.Equal(t, http.StatusConflict, rec.Code)

		var result services.BulkValidationResult
		assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
		assert.True(t, result.RequiresApproval)
		assert.Equal(t, 1, result.DuplicateRows)

		var count int64
		testDB.Model(&models.Branch{}).Where("code = ?", "FR001").Count(&count)
		assert.Zero(t, count)
	})

	t.Run("approve_duplicates inserts valid rows and skips the rest", func(t *testing.T) {
		c, rec := setupUpload(t, "/api/branches/bulk-upload", csvContent,
			map[string]string{"approve_duplicates": "true"})
		authenticate(t, testDB, c, user)

		assert.NoError(t, BulkUploadBranchesHandler(c))
		assert.Equal(t, http.StatusOK, rec.Code)

		var resp struct {
			Commit services.BulkCommitResult `json:"commit"`
		}
		assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, 1, resp.Commit.Inserted)
		assert.Len(t, resp.Commit.Skipped, 1)
	})

	t.Run("oversized upload returns 413", func(t *testing.T) {
		var b strings.Builder
		b.WriteString(uploadHeader)
		for i := 0; i < 101; i++ { // test config caps at 100 rows
			b.WriteString("Branch,X" + string(rune('A'+i%26)) + ",Addr,1,S,,,\n")
		}
		c, rec := setupUpload(t, "/api/branches/bulk-upload", b.String(), nil)
		authenticate(t, testDB, c, user)

		assert.NoError(t, BulkUploadBranchesHandler(c))
		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	})

	t.Run("missing file returns 400", func(t *testing.T) {
		_, c, rec := setupEcho(http.MethodPost, "/api/branches/bulk-upload", nil)
		authenticate(t, testDB, c, user)

		assert.NoError(t, BulkUploadBranchesHandler(c))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestTwoPhaseBranchUpload(t *testing.T) {
	testDB := setupTestDB(t)
	user := createTestUser(t, testDB, models.RoleManager)

	csvContent := uploadHeader + "Two Phase,TP001,9 Ring Road,440001,Maharashtra,,,\n"

	// Phase one: validate
	c, rec := setupUpload(t, "/api/branches/bulk-upload/validate", csvContent, nil)
	authenticate(t, testDB, c, user)
	assert.NoError(t, ValidateBranchUploadHandler(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var result services.BulkValidationResult
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.NotEmpty(t, result.ReportID)
	assert.Equal(t, 1, result.ValidRows)

	var count int64
	testDB.Model(&models.Branch{}).Where("code = ?", "TP001").Count(&count)
	assert.Zero(t, count, "validation must not insert")

	// Phase two: commit by report id
	commit := func() (int, []byte) {
		_, c, rec := setupEcho(http.MethodPost, "/api/branches/bulk-upload/commit",
			strings.NewReader(`{"report_id":"`+result.ReportID+`"}`))
		c.Request().Header.Set("Content-Type", "application/json")
		authenticate(t, testDB, c, user)
		assert.NoError(t, CommitBranchUploadHandler(c))
		return rec.Code, rec.Body.Bytes()
	}

	code, body := commit()
	assert.Equal(t, http.StatusOK, code)

	var commitResult services.BulkCommitResult
	assert.NoError(t, json.Unmarshal(body, &commitResult))
	assert.Equal(t, 1, commitResult.Inserted)

	testDB.Model(&models.Branch{}).Where("code = ?", "TP001").Count(&count)
	assert.Equal(t, int64(1), count)

	// The report is single-use
	code, _ = commit()
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestSampleBranchCSVHandler(t *testing.T) {
	setupTestDB(t)
	_, c, rec := setupEcho(http.MethodGet, "/api/branches/sample-csv", nil)

	assert.NoError(t, SampleBranchCSVHandler(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "name,code,address,pincode,state")
}
