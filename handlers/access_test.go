package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func accessRouter() *gin.Engine {
	g := gin.New()
	NewAccessHandler().Register(g.Group("/api/v1"))
	return g
}

func TestBACFromManualFields(t *testing.T) {
	g := accessRouter()
	// Doc 9303 worked example: number L898902C<, birth 690806, expiry 940623
	body := `{"documentNumber":"L898902C","birthDate":"690806","expiryDate":"940623"}`
	w := postJSON(t, g, "/api/v1/access/bac", body)
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "239ab9cb282daf66231dc5a4df6bfbae", resp["seed"])
	assert.Equal(t, "ab94fdecf2674fdfb9b391f85d7f76f2", resp["kEnc"])
	assert.Equal(t, "7962d9ece03d1acd4c76089dce131543", resp["kMac"])
}

func TestBACFromScannedLines(t *testing.T) {
	g := accessRouter()
	body := `{"lines":["` + specimenTD3Line1 + `","` + specimenTD3Line2 + `"]}`
	w := postJSON(t, g, "/api/v1/access/bac", body)
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp["seed"], 32)
	assert.Len(t, resp["kEnc"], 32)
	assert.Len(t, resp["kMac"], 32)
}

func TestBACRejectsIncompleteFields(t *testing.T) {
	g := accessRouter()
	w := postJSON(t, g, "/api/v1/access/bac", `{"documentNumber":"L898902C"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPACEPasswordAndSuites(t *testing.T) {
	g := accessRouter()
	body := `{"documentNumber":"L898902C","birthDate":"690806","expiryDate":"940623"}`
	w := postJSON(t, g, "/api/v1/access/pace", body)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Password string            `json:"password"`
		Suites   []json.RawMessage `json:"suites"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	// PACE uses the full SHA-1 of the key input, so the BAC seed is its prefix
	assert.Equal(t, "239ab9cb282daf66231dc5a4df6bfbae", resp.Password[:32])
	assert.Len(t, resp.Password, 40)
	assert.NotEmpty(t, resp.Suites)
}

func TestPACERejectsUnknownSuite(t *testing.T) {
	g := accessRouter()
	body := `{"documentNumber":"L898902C","birthDate":"690806","expiryDate":"940623","suiteOid":"1.2.3.4"}`
	w := postJSON(t, g, "/api/v1/access/pace", body)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestReadinessReport(t *testing.T) {
	g := accessRouter()
	body := `{"lines":["` + specimenTD3Line1 + `","` + specimenTD3Line2 + `"],"chipDetected":true,"cardAccessPresent":true}`
	w := postJSON(t, g, "/api/v1/readiness", body)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Ready     bool   `json:"ready"`
		Report    string `json:"report"`
		Readiness struct {
			Protocol string `json:"protocol"`
		} `json:"readiness"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Ready)
	assert.Equal(t, "pace", resp.Readiness.Protocol)
	assert.Contains(t, resp.Report, "MRZ Fields Complete: true")
	assert.Contains(t, resp.Report, "Chip Reachable: true")
}

func TestReadinessChipMissing(t *testing.T) {
	g := accessRouter()
	body := `{"lines":["` + specimenTD3Line1 + `","` + specimenTD3Line2 + `"],"chipDetected":false}`
	w := postJSON(t, g, "/api/v1/readiness", body)
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, false, resp["ready"])
	assert.Contains(t, w.Body.String(), "hold the card steady")
}
