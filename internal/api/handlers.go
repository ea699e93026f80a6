package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/prepdesk/prepdesk/internal/auth"
	"github.com/prepdesk/prepdesk/internal/catalog"
	"github.com/prepdesk/prepdesk/internal/errors"
	"github.com/prepdesk/prepdesk/internal/feed"
	"github.com/prepdesk/prepdesk/internal/progress"
	"github.com/prepdesk/prepdesk/internal/score"
	"github.com/prepdesk/prepdesk/internal/session"
	"github.com/prepdesk/prepdesk/internal/telemetry"
	"github.com/prepdesk/prepdesk/internal/user"
)

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (a *API) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondErr(c, errors.New(errors.CodeInvalidArgument, errors.WithCause(err)))
		return
	}

	id, err := a.us.Register(c.Request.Context(), user.RegisterRequest{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		respondErr(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"userId": id.UserID})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (a *API) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondErr(c, errors.New(errors.CodeInvalidArgument, errors.WithCause(err)))
		return
	}

	id, err := a.us.Login(c.Request.Context(), user.LoginRequest{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		respondErr(c, err)
		return
	}

	token, err := a.am.Issue(*id)
	if err != nil {
		respondErr(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"name":  id.Name,
	})
}

type updateProfileRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (a *API) updateProfile(c *gin.Context) {
	id, err := auth.IdentityFromContext(c)
	if err != nil {
		respondErr(c, err)
		return
	}

	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondErr(c, errors.New(errors.CodeInvalidArgument, errors.WithCause(err)))
		return
	}

	updated, err := a.us.Update(c.Request.Context(), user.UpdateRequest{
		UserID: id.UserID,
		Name:   req.Name,
		Email:  req.Email,
	})
	if err != nil {
		respondErr(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"userId": updated.UserID,
		"name":   updated.Name,
		"email":  updated.Email,
	})
}

type (
	examTypeResponse struct {
		ID          string           `json:"id"`
		Name        string           `json:"name"`
		Description string           `json:"description,omitempty"`
		Courses     []courseResponse `json:"courses"`
	}

	courseResponse struct {
		ID    string         `json:"id"`
		Name  string         `json:"name"`
		Diets []dietResponse `json:"diets"`
	}

	dietResponse struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
)

func (a *API) listExamTypes(c *gin.Context) {
	examTypes, err := a.cs.ListExamTypes(c.Request.Context())
	if err != nil {
		respondErr(c, err)
		return
	}

	resp := make([]examTypeResponse, 0, len(examTypes))
	for _, et := range examTypes {
		etr := examTypeResponse{
			ID:          et.ExamTypeID,
			Name:        et.Name,
			Description: et.Description,
			Courses:     make([]courseResponse, 0, len(et.Courses)),
		}
		for _, course := range et.Courses {
			cr := courseResponse{
				ID:    course.CourseID,
				Name:  course.Name,
				Diets: make([]dietResponse, 0, len(course.Diets)),
			}
			for _, d := range course.Diets {
				cr.Diets = append(cr.Diets, dietResponse{ID: d.DietID, Name: d.Name})
			}
			etr.Courses = append(etr.Courses, cr)
		}
		resp = append(resp, etr)
	}

	c.JSON(http.StatusOK, resp)
}

func (a *API) getCourse(c *gin.Context) {
	course, err := a.cs.GetCourse(c.Request.Context(), catalog.GetCourseRequest{
		CourseID: c.Param("courseId"),
	})
	if err != nil {
		respondErr(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":   course.CourseID,
		"name": course.Name,
	})
}

type startSessionRequest struct {
	CourseID string `json:"courseId"`
	DietID   string `json:"dietId"`
}

type questionResponse struct {
	ID      string   `json:"id"`
	Type    string   `json:"type"`
	Content string   `json:"content"`
	Options []string `json:"options,omitempty"`

	// Populated only for modes that grade on the client as the user goes.
	CorrectAnswer         string `json:"correctAnswer,omitempty"`
	Explanation           string `json:"explanation,omitempty"`
	SimplifiedExplanation string `json:"simplifiedExplanation,omitempty"`
}

func (a *API) startSession(m session.Mode) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := auth.IdentityFromContext(c)
		if err != nil {
			respondErr(c, err)
			return
		}

		var req startSessionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondErr(c, errors.New(errors.CodeInvalidArgument, errors.WithCause(err)))
			return
		}

		ss, questions, err := a.qss.StartSession(c.Request.Context(), session.StartSessionRequest{
			UserID:   id.UserID,
			CourseID: req.CourseID,
			DietID:   req.DietID,
			Mode:     m,
		})
		if err != nil {
			respondErr(c, err)
			return
		}

		telemetry.SessionsStarted.WithLabelValues(string(m)).Inc()

		p, _ := m.Policy()

		resp := make([]questionResponse, 0, len(questions))
		for _, q := range questions {
			qr := questionResponse{
				ID:      q.QuestionID,
				Type:    string(q.Type),
				Content: q.Content,
				Options: q.Options,
			}
			if p.RevealAnswers {
				qr.CorrectAnswer = q.CorrectAnswer
				qr.Explanation = q.Explanation
				qr.SimplifiedExplanation = q.SimplifiedExplanation
			}
			resp = append(resp, qr)
		}

		c.JSON(http.StatusOK, gin.H{
			"sessionId":      ss.SessionID,
			"totalQuestions": ss.TotalQuestions,
			"questions":      resp,
		})
	}
}

// getSession returns the live state of a session so a client can resume it:
// which questions it holds, what has been answered so far and whether it has
// already been finalized.
func (a *API) getSession(m session.Mode) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := auth.IdentityFromContext(c)
		if err != nil {
			respondErr(c, err)
			return
		}

		sessionID := c.Query("sessionId")
		if sessionID == "" {
			respondErr(c, errors.New(errors.CodeInvalidArgument,
				errors.WithMessagef("sessionId is required")))
			return
		}

		ss, err := a.qss.GetSession(c.Request.Context(), session.GetSessionRequest{
			SessionID: sessionID,
		})
		if err != nil {
			respondErr(c, err)
			return
		}

		if ss.UserID != id.UserID || ss.Mode != string(m) {
			respondErr(c, errors.New(errors.CodeNotFound,
				errors.WithMessagef("session not found: %s", sessionID)))
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"sessionId":      ss.SessionID,
			"courseId":       ss.CourseID,
			"questionIds":    ss.QuestionIDs,
			"answers":        ss.Answers,
			"totalQuestions": ss.TotalQuestions,
			"startedAt":      ss.StartedAt,
			"completed":      ss.Completed(),
		})
	}
}

type submitAnswerRequest struct {
	SessionID        string `json:"sessionId"`
	QuestionID       string `json:"questionId"`
	Answer           string `json:"answer"`
	TimeSpentSeconds int64  `json:"timeSpentSeconds"`
}

func (a *API) submitAnswer(c *gin.Context) {
	id, err := auth.IdentityFromContext(c)
	if err != nil {
		respondErr(c, err)
		return
	}

	var req submitAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondErr(c, errors.New(errors.CodeInvalidArgument, errors.WithCause(err)))
		return
	}

	resp, err := a.qss.SubmitAnswer(c.Request.Context(), session.SubmitAnswerRequest{
		SessionID:        req.SessionID,
		UserID:           id.UserID,
		QuestionID:       req.QuestionID,
		Answer:           req.Answer,
		TimeSpentSeconds: req.TimeSpentSeconds,
	})
	if err != nil {
		respondErr(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"isCorrect": resp.IsCorrect})
}

type finishSessionRequest struct {
	SessionID        string            `json:"sessionId"`
	Answers          map[string]string `json:"answers"`
	TimeSpentSeconds int64             `json:"timeSpentSeconds"`
}

func (a *API) finishSession(m session.Mode) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := auth.IdentityFromContext(c)
		if err != nil {
			respondErr(c, err)
			return
		}

		var req finishSessionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondErr(c, errors.New(errors.CodeInvalidArgument, errors.WithCause(err)))
			return
		}
		if req.Answers == nil {
			req.Answers = map[string]string{}
		}

		resp, err := a.ss.Finalize(c.Request.Context(), score.FinalizeRequest{
			SessionID:        req.SessionID,
			UserID:           id.UserID,
			Answers:          req.Answers,
			TimeSpentSeconds: req.TimeSpentSeconds,
		})
		if err != nil {
			if errors.Is(err, errors.CodeFailedPrecondition) {
				telemetry.FinalizeConflicts.Inc()
			}
			respondErr(c, err)
			return
		}

		telemetry.SessionsFinalized.WithLabelValues(string(m)).Inc()

		c.JSON(http.StatusOK, gin.H{
			"sessionId":      resp.SessionID,
			"score":          resp.Score.InexactFloat64(),
			"correctAnswers": resp.CorrectAnswers,
			"totalQuestions": resp.TotalQuestions,
			"timeSpent":      resp.TimeSpent,
		})
	}
}

type summaryQuestionResponse struct {
	ID                    string   `json:"id"`
	Type                  string   `json:"type"`
	Content               string   `json:"content"`
	Options               []string `json:"options,omitempty"`
	UserAnswer            string   `json:"userAnswer"`
	CorrectAnswer         string   `json:"correctAnswer"`
	IsCorrect             bool     `json:"isCorrect"`
	Explanation           string   `json:"explanation,omitempty"`
	SimplifiedExplanation string   `json:"simplifiedExplanation,omitempty"`
}

func (a *API) summary(m session.Mode) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := auth.IdentityFromContext(c)
		if err != nil {
			respondErr(c, err)
			return
		}

		sessionID := c.Query("sessionId")
		if sessionID == "" {
			respondErr(c, errors.New(errors.CodeInvalidArgument,
				errors.WithMessagef("sessionId is required")))
			return
		}

		resp, err := a.ss.Summary(c.Request.Context(), score.SummaryRequest{
			SessionID: sessionID,
			UserID:    id.UserID,
		})
		if err != nil {
			respondErr(c, err)
			return
		}

		if resp.Mode != string(m) {
			respondErr(c, errors.New(errors.CodeNotFound,
				errors.WithMessagef("session not found: %s", sessionID)))
			return
		}

		questions := make([]summaryQuestionResponse, 0, len(resp.Questions))
		for _, q := range resp.Questions {
			questions = append(questions, summaryQuestionResponse{
				ID:                    q.QuestionID,
				Type:                  string(q.Type),
				Content:               q.Content,
				Options:               q.Options,
				UserAnswer:            q.UserAnswer,
				CorrectAnswer:         q.CorrectAnswer,
				IsCorrect:             q.IsCorrect,
				Explanation:           q.Explanation,
				SimplifiedExplanation: q.SimplifiedExplanation,
			})
		}

		c.JSON(http.StatusOK, gin.H{
			"sessionId":      resp.SessionID,
			"courseId":       resp.CourseID,
			"score":          resp.Score.InexactFloat64(),
			"correctAnswers": resp.CorrectAnswers,
			"totalQuestions": resp.TotalQuestions,
			"timeSpent":      resp.TimeSpent,
			"questions":      questions,
		})
	}
}

type activityResponse struct {
	Course      string    `json:"course"`
	Mode        string    `json:"mode"`
	Score       float64   `json:"score"`
	CompletedAt time.Time `json:"completedAt"`
}

func (a *API) dashboard(c *gin.Context) {
	id, err := auth.IdentityFromContext(c)
	if err != nil {
		respondErr(c, err)
		return
	}

	d, err := a.ps.GetDashboard(c.Request.Context(), progress.GetDashboardRequest{
		UserID: id.UserID,
	})
	if err != nil {
		respondErr(c, err)
		return
	}

	recent := make([]activityResponse, 0, len(d.RecentActivity))
	for _, act := range d.RecentActivity {
		recent = append(recent, activityResponse{
			Course:      act.CourseName,
			Mode:        act.Mode,
			Score:       act.Score.InexactFloat64(),
			CompletedAt: act.CompletedAt,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"name":                    id.Name,
		"totalQuestionsAttempted": d.TotalQuestionsAttempted,
		"totalCorrect":            d.TotalCorrect,
		"averageScore":            d.AverageScore.InexactFloat64(),
		"studyTimeThisWeek":       d.StudyTimeWeekSeconds,
		"mockExamsCompleted":      d.MockExamsCompleted,
		"recentActivity":          recent,
	})
}

func (a *API) feedHandler(c *gin.Context) {
	id, err := auth.IdentityFromContext(c)
	if err != nil {
		respondErr(c, err)
		return
	}

	entries, err := a.fs.GetFeed(c.Request.Context(), feed.GetFeedRequest{
		UserID: id.UserID,
	})
	if err != nil {
		respondErr(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"entries": entries})
}
