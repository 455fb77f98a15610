package web

import (
	"errors"
	"html/template"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"taskboard/internal/board"
	"taskboard/internal/forms"
	"taskboard/internal/gateway"
	"taskboard/internal/models"
	"taskboard/internal/notify"
	"taskboard/internal/tasks"
)

const (
	contextUser = "user"

	keepAliveInterval = 25 * time.Second
)

var templateFuncs = template.FuncMap{
	"statuses":   func() []models.TaskStatus { return models.Statuses },
	"priorities": func() []models.TaskPriority { return models.Priorities },
	"categories": func() []models.TaskCategory { return models.Categories },
	"slug": func(s any) string {
		var v string
		switch s := s.(type) {
		case models.TaskStatus:
			v = string(s)
		case models.TaskCategory:
			v = string(s)
		case models.TaskPriority:
			v = string(s)
		case string:
			v = s
		}
		return strings.ReplaceAll(strings.ToLower(v), " ", "-")
	},
}

// requireSession sends anonymous visitors to /login.
func (a *App) requireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		st := a.store.State()
		if !st.IsAuthenticated || st.User == nil {
			c.Redirect(http.StatusSeeOther, "/login")
			c.Abort()
			return
		}
		c.Set(contextUser, *st.User)
		c.Next()
	}
}

func currentUser(c *gin.Context) gateway.User {
	u, _ := c.Get(contextUser)
	user, _ := u.(gateway.User)
	return user
}

func (a *App) render(c *gin.Context, status int, name string, data gin.H) {
	if data == nil {
		data = gin.H{}
	}
	if _, ok := data["Flash"]; !ok {
		data["Flash"] = a.takeFlash()
	}
	if _, ok := data["Errors"]; !ok {
		data["Errors"] = forms.FieldErrors{}
	}
	if u, ok := c.Get(contextUser); ok {
		data["User"] = u
	}
	c.HTML(status, name, data)
}

func (a *App) failPage(c *gin.Context, err error, notFound string) {
	if errors.Is(err, gateway.ErrNotFound) {
		a.render(c, http.StatusNotFound, "error.html", gin.H{"Message": notFound})
		return
	}
	a.log.Error("page failed", zap.String("path", c.Request.URL.Path), zap.Error(err))
	a.render(c, http.StatusBadGateway, "error.html", gin.H{"Message": "Something went wrong. Please try again."})
}

// redirectBack returns to the task view or edit screen named by the form's
// "back" field.
func redirectBack(c *gin.Context, taskID string) {
	target := "/task/" + taskID
	if c.PostForm("back") == "edit" {
		target = "/edit/" + taskID
	}
	c.Redirect(http.StatusSeeOther, target)
}

func gatewayMessage(err error, fallback string) string {
	var gwErr *gateway.Error
	if errors.As(err, &gwErr) && gwErr.Message != "" {
		return gwErr.Message
	}
	return fallback
}

// Auth pages

func (a *App) showLogin(c *gin.Context) {
	if a.store.IsAuthenticated() {
		c.Redirect(http.StatusSeeOther, "/")
		return
	}
	a.render(c, http.StatusOK, "login.html", gin.H{"Form": forms.Login{}})
}

func (a *App) login(c *gin.Context) {
	var form forms.Login
	if err := c.ShouldBind(&form); err != nil {
		a.render(c, http.StatusBadRequest, "login.html", gin.H{"Form": form, "Errors": forms.FieldErrors{"_form": "Invalid form submission"}})
		return
	}
	if errs := a.v.Check(form); !errs.OK() {
		a.render(c, http.StatusUnprocessableEntity, "login.html", gin.H{"Form": form, "Errors": errs})
		return
	}

	err := a.store.Login(c.Request.Context(), gateway.Credentials{Email: form.Email, Password: form.Password})
	if err != nil {
		a.render(c, http.StatusUnauthorized, "login.html", gin.H{
			"Form":  forms.Login{Email: form.Email},
			"Flash": notify.ErrorOf("Login Failed", gatewayMessage(err, "Unable to sign in. Please try again.")),
		})
		return
	}

	if u := a.store.User(); u != nil {
		a.boardFor(u.ID)
	}
	c.Redirect(http.StatusSeeOther, "/")
}

func (a *App) showRegister(c *gin.Context) {
	a.render(c, http.StatusOK, "register.html", gin.H{"Form": forms.Register{}})
}

func (a *App) register(c *gin.Context) {
	var form forms.Register
	if err := c.ShouldBind(&form); err != nil {
		a.render(c, http.StatusBadRequest, "register.html", gin.H{"Form": form, "Errors": forms.FieldErrors{"_form": "Invalid form submission"}})
		return
	}

	errs, err := a.accounts.Register(c.Request.Context(), form)
	if !errs.OK() {
		a.render(c, http.StatusUnprocessableEntity, "register.html", gin.H{"Form": form, "Errors": errs})
		return
	}
	if err != nil {
		a.log.Warn("registration failed", zap.Error(err))
		form.Password, form.ConfirmPassword = "", ""
		a.render(c, http.StatusBadRequest, "register.html", gin.H{
			"Form":  form,
			"Flash": notify.ErrorOf("Registration Failed", gatewayMessage(err, "Unable to create your account.")),
		})
		return
	}

	a.setFlash(notify.SuccessOf("Account Created", "You can now sign in with your new account."))
	c.Redirect(http.StatusSeeOther, "/login")
}

func (a *App) logout(c *gin.Context) {
	if err := a.Close(); err != nil {
		a.log.Warn("closing board on logout failed", zap.Error(err))
	}
	a.store.Logout(c.Request.Context())
	c.Redirect(http.StatusSeeOther, "/login")
}

// Board

func (a *App) boardData(c *gin.Context) gin.H {
	b := a.boardFor(currentUser(c).ID)
	return gin.H{
		"Loading": b.Loading(),
		"Columns": b.Columns(),
		"Version": b.Version(),
	}
}

func (a *App) showBoard(c *gin.Context) {
	data := a.boardData(c)
	data["Form"] = forms.Task{}
	data["Priority"] = models.TaskPriority("")
	data["SubTasks"] = ""
	a.render(c, http.StatusOK, "board.html", data)
}

// events pushes a "board" event whenever the board changes, so the page can
// refresh itself.
func (a *App) events(c *gin.Context) {
	b := a.boardFor(currentUser(c).ID)
	changes, stop := b.Changes()
	defer stop()

	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.SSEvent("ready", b.Version())
	c.Writer.Flush()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-c.Request.Context().Done():
			return false
		case <-changes:
			c.SSEvent("board", b.Version())
			return true
		case <-ticker.C:
			c.SSEvent("ping", time.Now().Unix())
			return true
		}
	})
}

func (a *App) createTask(c *gin.Context) {
	var form forms.Task
	if err := c.ShouldBind(&form); err != nil {
		a.setFlash(notify.ErrorOf("Failed to Create Task", "Invalid form submission."))
		c.Redirect(http.StatusSeeOther, "/")
		return
	}
	priority := models.TaskPriority(c.PostForm("priority"))
	pending := strings.Split(c.PostForm("sub_tasks"), "\n")

	res, note := a.tasks.CreateTask(c.Request.Context(), form, priority, pending)
	if res.Outcome == tasks.Failure && !res.Errors.OK() {
		data := a.boardData(c)
		data["Form"] = form
		data["Priority"] = priority
		data["SubTasks"] = c.PostForm("sub_tasks")
		data["Errors"] = res.Errors
		data["ShowForm"] = true
		a.render(c, http.StatusUnprocessableEntity, "board.html", data)
		return
	}
	a.setFlash(note)
	c.Redirect(http.StatusSeeOther, "/")
}

func (a *App) updateStatus(c *gin.Context) {
	a.tasks.UpdateStatus(c.Request.Context(), c.Param("id"), models.TaskStatus(c.PostForm("status")))
	c.Redirect(http.StatusSeeOther, "/")
}

func (a *App) deleteTask(c *gin.Context) {
	id := c.Param("id")
	note := a.tasks.DeleteTask(c.Request.Context(), id)
	if note.Kind == notify.Success {
		a.mu.Lock()
		if a.detail != nil && a.detail.Task().ID == id {
			a.detail = nil
		}
		a.mu.Unlock()
	}
	a.setFlash(note)
	c.Redirect(http.StatusSeeOther, "/")
}

// Task view and edit

func (a *App) showTask(c *gin.Context) {
	d, err := a.screen(c.Request.Context(), c.Param("id"), true)
	if err != nil {
		a.failPage(c, err, "Task not found")
		return
	}
	a.render(c, http.StatusOK, "task.html", gin.H{"Task": d.Task()})
}

func (a *App) showEdit(c *gin.Context) {
	d, err := a.screen(c.Request.Context(), c.Param("id"), true)
	if err != nil {
		a.failPage(c, err, "Task not found")
		return
	}
	task := d.Task()
	a.render(c, http.StatusOK, "edit.html", gin.H{
		"Task":     task,
		"Form":     forms.TaskFrom(task),
		"Priority": task.Priority,
	})
}

func (a *App) saveEdit(c *gin.Context) {
	id := c.Param("id")
	d, err := a.screen(c.Request.Context(), id, false)
	if err != nil {
		a.failPage(c, err, "Task not found")
		return
	}

	var form forms.Task
	if err := c.ShouldBind(&form); err != nil {
		a.setFlash(notify.ErrorOf("Update Task Failed", "Invalid form submission."))
		c.Redirect(http.StatusSeeOther, "/edit/"+id)
		return
	}
	priority := models.TaskPriority(c.PostForm("priority"))

	errs, note := a.tasks.UpdateTask(c.Request.Context(), id, form, priority)
	if !errs.OK() || note.Kind == notify.Error {
		a.render(c, http.StatusUnprocessableEntity, "edit.html", gin.H{
			"Task":     d.Task(),
			"Form":     form,
			"Priority": priority,
			"Errors":   errs,
			"Flash":    note,
		})
		return
	}
	a.setFlash(note)
	c.Redirect(http.StatusSeeOther, "/task/"+id)
}

func (a *App) addSubTask(c *gin.Context) {
	id := c.Param("id")
	d, err := a.screen(c.Request.Context(), id, false)
	if err != nil {
		a.failPage(c, err, "Task not found")
		return
	}

	form := forms.SubTask{Title: c.PostForm("title")}
	if errs := a.v.Check(form); !errs.OK() {
		a.setFlash(notify.WarningOf("Sub-task Not Added", errs["title"]))
		redirectBack(c, id)
		return
	}
	if _, err := d.Add(c.Request.Context(), form.Title); err != nil {
		a.log.Error("adding sub-task failed", zap.String("task_id", id), zap.Error(err))
		a.setFlash(notify.ErrorOf("Something Went Wrong", "Failed to create a subtask."))
	}
	redirectBack(c, id)
}

func (a *App) toggleSubTask(c *gin.Context) {
	id := c.Param("id")
	d, err := a.screen(c.Request.Context(), id, false)
	if err != nil {
		a.failPage(c, err, "Task not found")
		return
	}
	_, err = d.ToggleSubTask(c.Request.Context(), c.Param("sid"))
	if errors.Is(err, board.ErrUnknownSubTask) {
		a.render(c, http.StatusNotFound, "error.html", gin.H{"Message": "Sub-task not found"})
		return
	}
	if err != nil {
		a.setFlash(notify.ErrorOf("Something Went Wrong", "The sub-task could not be updated."))
	}
	redirectBack(c, id)
}

func (a *App) renameSubTask(c *gin.Context) {
	id := c.Param("id")
	d, err := a.screen(c.Request.Context(), id, false)
	if err != nil {
		a.failPage(c, err, "Task not found")
		return
	}

	form := forms.SubTask{Title: c.PostForm("title")}
	if errs := a.v.Check(form); !errs.OK() {
		a.setFlash(notify.WarningOf("Sub-task Not Renamed", errs["title"]))
		redirectBack(c, id)
		return
	}
	if err := d.Rename(c.Request.Context(), c.Param("sid"), form.Title); err != nil {
		a.log.Error("renaming sub-task failed", zap.String("sub_task_id", c.Param("sid")), zap.Error(err))
		a.setFlash(notify.ErrorOf("Something Went Wrong", "The sub-task could not be renamed."))
	}
	redirectBack(c, id)
}

func (a *App) removeSubTask(c *gin.Context) {
	id := c.Param("id")
	d, err := a.screen(c.Request.Context(), id, false)
	if err != nil {
		a.failPage(c, err, "Task not found")
		return
	}
	if err := d.Remove(c.Request.Context(), c.Param("sid")); err != nil {
		a.log.Error("removing sub-task failed", zap.String("sub_task_id", c.Param("sid")), zap.Error(err))
		a.setFlash(notify.ErrorOf("Something Went Wrong", "The sub-task could not be removed."))
	}
	redirectBack(c, id)
}

// Profile

func (a *App) showProfile(c *gin.Context) {
	id := c.Param("id")
	p, err := a.accounts.LoadProfile(c.Request.Context(), id)
	if err != nil {
		a.failPage(c, err, "Profile not found")
		return
	}
	user := currentUser(c)
	a.render(c, http.StatusOK, "profile.html", gin.H{
		"Profile": p,
		"Email":   user.Email,
		"Own":     user.ID == id,
	})
}

func (a *App) ownProfile(c *gin.Context) (string, bool) {
	id := c.Param("id")
	if currentUser(c).ID != id {
		a.render(c, http.StatusForbidden, "error.html", gin.H{"Message": "You can only edit your own profile"})
		return "", false
	}
	return id, true
}

func (a *App) renameProfile(c *gin.Context) {
	id, ok := a.ownProfile(c)
	if !ok {
		return
	}
	_, errs, err := a.accounts.RenameProfile(c.Request.Context(), id, forms.Profile{Username: c.PostForm("username")})
	switch {
	case !errs.OK():
		a.setFlash(notify.WarningOf("Username Not Changed", errs["username"]))
	case err != nil:
		a.log.Error("renaming profile failed", zap.String("user_id", id), zap.Error(err))
		a.setFlash(notify.ErrorOf("Something Went Wrong", "Your username could not be changed."))
	default:
		a.setFlash(notify.SuccessOf("Profile Updated", "Your username has been changed."))
	}
	c.Redirect(http.StatusSeeOther, "/profile/"+id)
}

func (a *App) uploadProfileImage(c *gin.Context) {
	id, ok := a.ownProfile(c)
	if !ok {
		return
	}
	fh, err := c.FormFile("image")
	if err != nil {
		a.setFlash(notify.WarningOf("No Photo Selected", "Choose an image to upload."))
		c.Redirect(http.StatusSeeOther, "/profile/"+id)
		return
	}
	f, err := fh.Open()
	if err != nil {
		a.failPage(c, err, "")
		return
	}
	defer f.Close()

	ctx := c.Request.Context()
	current, err := a.accounts.LoadProfile(ctx, id)
	if err != nil {
		a.failPage(c, err, "Profile not found")
		return
	}
	contentType := fh.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	if _, err := a.accounts.ReplaceProfileImage(ctx, current, fh.Filename, contentType, f); err != nil {
		a.log.Error("profile image upload failed", zap.String("user_id", id), zap.Error(err))
		a.setFlash(notify.ErrorOf("Upload Failed", gatewayMessage(err, "Your photo could not be uploaded.")))
	} else {
		a.setFlash(notify.SuccessOf("Profile Updated", "Your photo has been changed."))
	}
	c.Redirect(http.StatusSeeOther, "/profile/"+id)
}
