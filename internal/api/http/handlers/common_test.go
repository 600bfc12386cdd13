package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/dicri/evidence-service/pkg/util"
)

func TestPagination(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: func(c *fiber.Ctx, err error) error {
		de := apperrors.ToDomainError(err)
		return c.Status(de.HTTPStatus).SendString(de.Code)
	}})
	app.Get("/page", func(c *fiber.Ctx) error {
		limit, offset, err := pagination(c)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"limit": limit, "offset": offset})
	})

	tests := []struct {
		name       string
		query      string
		wantStatus int
		wantLimit  int
		wantOffset int
	}{
		{"unbounded", "", http.StatusOK, 0, 0},
		{"defaults", "?page=2", http.StatusOK, defaultPageSize, defaultPageSize},
		{"capped size", "?page=3&page_size=1000", http.StatusOK, maxPageSize, 2 * maxPageSize},
		{"garbage page", "?page=abc&page_size=10", http.StatusOK, 10, 0},
		{"last allowed page", "?page=" + strconv.Itoa(maxPage) + "&page_size=1", http.StatusOK, 1, maxPage - 1},
		{"page past bound", "?page=" + strconv.Itoa(maxPage+1), http.StatusBadRequest, 0, 0},
		{"overflowing page", "?page=9223372036854775807&page_size=200", http.StatusBadRequest, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/page"+tt.query, nil))
			require.NoError(t, err)
			defer resp.Body.Close()
			require.Equal(t, tt.wantStatus, resp.StatusCode)
			if tt.wantStatus != http.StatusOK {
				return
			}
			var got struct {
				Limit  int `json:"limit"`
				Offset int `json:"offset"`
			}
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
			assert.Equal(t, tt.wantLimit, got.Limit)
			assert.Equal(t, tt.wantOffset, got.Offset)
		})
	}
}
