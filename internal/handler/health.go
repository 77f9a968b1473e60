package handler // declare the package name; contains HTTP handlers

import (
    "context"           // context bounds the duration of the DB ping
    "database/sql"      // sql.DB is pinged by the readiness check
    "net/http"          // net/http provides status codes and response helpers
    "time"              // time provides the ping timeout

    "github.com/labstack/echo/v4" // echo is the web framework used for this project
)

// Health is a simple health‑check endpoint used by load balancers and
// monitoring systems to verify that the service is running.  It returns
// a plain text "ok" message with an HTTP 200 status code.
func Health(c echo.Context) error { // Health handler signature accepts an echo context and returns an error
    return c.String(http.StatusOK, "ok") // write "ok" with a 200 OK status; String writes plain text
}

// HealthDB returns a readiness handler that pings the database.  A
// failing ping reports 503 so orchestrators stop routing traffic here.
func HealthDB(db *sql.DB) echo.HandlerFunc {
    return func(c echo.Context) error {
        ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
        defer cancel()
        if err := db.PingContext(ctx); err != nil {
            return c.JSON(http.StatusServiceUnavailable, echo.Map{"status": "down"})
        }
        return c.JSON(http.StatusOK, echo.Map{"status": "up"})
    }
}
