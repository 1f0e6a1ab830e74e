package api

import (
	"io"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"tourloop/events"
	"tourloop/genapi"
)

// HandleGenerateTransition creates a provider project for the posted
// parameters and returns the relay's request identifier.
// POST /api/generate-transition
func (s *Server) HandleGenerateTransition(c *gin.Context) {
	var params genapi.CreateProjectParams
	if err := c.ShouldBindJSON(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON payload"})
		return
	}
	if len(params.StartImage) == 0 || len(params.EndImage) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "start and end images are required"})
		return
	}

	project, err := s.api.CreateProject(c.Request.Context(), params)
	if err != nil {
		log.Printf("❌ Failed to create generation project: %v", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	requestID := uuid.New().String()
	s.rememberProject(requestID, *project)
	log.Printf("📥 Relay created project %s (request %s)", project.ID, requestID)

	c.JSON(http.StatusOK, gin.H{"projectId": requestID})
}

// HandleProgressStream re-publishes the project's job lifecycle over a
// server-push stream scoped to the relay request identifier.
// GET /api/progress-stream/:projectId
func (s *Server) HandleProgressStream(c *gin.Context) {
	requestID := c.Param("projectId")
	project, ok := s.lookupProject(requestID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown project"})
		return
	}

	sub := s.bus.Subscribe()
	defer sub.Close()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.SSEvent("connected", gin.H{"type": "connected"})
	c.Writer.Flush()

	c.Stream(func(w io.Writer) bool {
		select {
		case ev, open := <-sub.Events():
			if !open {
				c.SSEvent("error", gin.H{"type": "error", "message": "event feed closed"})
				return false
			}
			if ev.ProjectID != project.ID && (project.JobID == "" || ev.JobID != project.JobID) {
				return true
			}
			return s.relayEvent(c, project, ev)

		case <-c.Request.Context().Done():
			return false
		}
	})
}

// relayEvent maps one provider event onto the stream taxonomy. Returns
// false after a terminal event so the stream closes.
func (s *Server) relayEvent(c *gin.Context, project genapi.Project, ev events.JobEvent) bool {
	switch ev.Type {
	case events.TypeStarted, events.TypeInitiating:
		c.SSEvent("progress", gin.H{"type": "progress", "progress": 0.0, "workerName": ev.Worker})

	case events.TypeProgress:
		fraction := 0.0
		if ev.StepCount > 0 {
			fraction = float64(ev.Step) / float64(ev.StepCount)
		}
		c.SSEvent("progress", gin.H{"type": "progress", "progress": fraction, "workerName": ev.Worker})

	case events.TypeJobCompleted:
		c.SSEvent("jobCompleted", gin.H{
			"type":         "jobCompleted",
			"resultUrl":    ev.ResultURL,
			"sdkProjectId": project.ID,
			"sdkJobId":     project.JobID,
		})
		if ev.ResultURL != "" {
			return false
		}

	case events.TypeCompleted:
		payload := gin.H{"type": "completed"}
		if ev.ResultURL != "" {
			payload["resultUrl"] = ev.ResultURL
		} else if len(ev.ResultURLs) > 0 {
			payload["imageUrls"] = ev.ResultURLs
		}
		c.SSEvent("completed", payload)
		return false

	case events.TypeFailed:
		message := ev.Message
		if message == "" {
			message = "generation failed"
		}
		c.SSEvent("error", gin.H{"type": "error", "message": message})
		return false
	}
	return true
}
