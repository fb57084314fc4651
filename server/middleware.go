/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/tomoncle/querystudy/utils"
)

// AccessLogger logs one entry per request with method, URI, client IP,
// status and latency fields.
func AccessLogger(log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		entry := log.WithFields(logrus.Fields{
			"req_method":   c.Request.Method,
			"req_uri":      c.Request.RequestURI,
			"client_ip":    c.ClientIP(),
			"status_code":  status,
			"latency_time": utils.Stamp(time.Since(start)),
		})
		switch {
		case len(c.Errors) > 0:
			entry.Error(c.Errors.String())
		case status >= http.StatusInternalServerError:
			entry.Error("request failed")
		default:
			entry.Info("request completed")
		}
	}
}

func Recovery(log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				log.WithField("panic", rec).Error("panic recovered")
				c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{
					Error: Error{Code: "INTERNAL_ERROR", Message: "internal server error"},
				})
			}
		}()
		c.Next()
	}
}
