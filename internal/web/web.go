// Package web serves the browser UI: the login and register pages, the task
// board, the task view and edit screens and the profile page.
package web

import (
	"context"
	"embed"
	"html/template"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"taskboard/internal/account"
	"taskboard/internal/board"
	"taskboard/internal/forms"
	"taskboard/internal/middleware"
	"taskboard/internal/notify"
	"taskboard/internal/session"
	"taskboard/internal/tasks"
)

//go:embed templates/*.html
var templateFS embed.FS

// Gateway is everything the pages reach through the gateway client.
type Gateway interface {
	session.Gateway
	board.Gateway
	board.DetailGateway
	tasks.Gateway
	account.Gateway
}

type Options struct {
	Gateway   Gateway
	Store     *session.Store
	Validator *forms.Validator
	Logger    *zap.Logger
}

// liveBoard is the board of the signed-in user, loaded in the background.
type liveBoard struct {
	userID string
	board  *board.Board
	cancel context.CancelFunc
	done   chan struct{}
}

// App holds the UI state of one signed-in user.
type App struct {
	gw       Gateway
	store    *session.Store
	v        *forms.Validator
	tasks    *tasks.Service
	accounts *account.Service
	log      *zap.Logger

	mu     sync.Mutex
	live   *liveBoard
	detail *board.Detail

	flashMu sync.Mutex
	flash   notify.Notification
}

func New(opts Options) *App {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &App{
		gw:       opts.Gateway,
		store:    opts.Store,
		v:        opts.Validator,
		tasks:    tasks.NewService(opts.Gateway, opts.Validator, log),
		accounts: account.NewService(opts.Gateway, opts.Validator, log),
		log:      log,
	}
}

// Router builds the gin engine with every page and form endpoint.
func (a *App) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.GinZapMiddleware(a.log))
	r.SetHTMLTemplate(template.Must(template.New("").Funcs(templateFuncs).ParseFS(templateFS, "templates/*.html")))

	r.GET("/login", a.showLogin)
	r.POST("/login", a.login)
	r.GET("/register", a.showRegister)
	r.POST("/register", a.register)
	r.POST("/logout", a.logout)

	protected := r.Group("", a.requireSession())
	{
		protected.GET("/", a.showBoard)
		protected.GET("/events", a.events)
		protected.POST("/tasks", a.createTask)

		protected.GET("/task/:id", a.showTask)
		protected.POST("/task/:id/status", a.updateStatus)
		protected.POST("/task/:id/delete", a.deleteTask)
		protected.POST("/task/:id/subtasks", a.addSubTask)
		protected.POST("/task/:id/subtasks/:sid/toggle", a.toggleSubTask)
		protected.POST("/task/:id/subtasks/:sid/rename", a.renameSubTask)
		protected.POST("/task/:id/subtasks/:sid/delete", a.removeSubTask)

		protected.GET("/edit/:id", a.showEdit)
		protected.POST("/edit/:id", a.saveEdit)

		protected.GET("/profile/:id", a.showProfile)
		protected.POST("/profile/:id", a.renameProfile)
		protected.POST("/profile/:id/image", a.uploadProfileImage)
	}

	r.NoRoute(func(c *gin.Context) {
		a.render(c, http.StatusNotFound, "error.html", gin.H{"Message": "Page not found"})
	})
	return r
}

// Close stops the board subscriptions.
func (a *App) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.detail = nil
	return a.closeBoardLocked()
}

// boardFor returns the board of userID, starting it if needed. A board
// belonging to another user is closed first.
func (a *App) boardFor(userID string) *board.Board {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.live != nil && a.live.userID == userID {
		return a.live.board
	}
	if err := a.closeBoardLocked(); err != nil {
		a.log.Warn("closing previous board failed", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	live := &liveBoard{
		userID: userID,
		board:  board.New(a.gw, a.log),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	a.live = live
	go a.startBoard(ctx, live)
	return live.board
}

// startBoard subscribes before loading so no change made during the load
// is missed; inserts already present are ignored by the board.
func (a *App) startBoard(ctx context.Context, live *liveBoard) {
	defer close(live.done)
	if err := live.board.Watch(ctx, live.userID); err != nil {
		a.log.Warn("board updates unavailable", zap.String("user_id", live.userID), zap.Error(err))
	}
	if err := live.board.Load(ctx); err != nil {
		a.log.Error("board load failed", zap.String("user_id", live.userID), zap.Error(err))
		if ctx.Err() == nil {
			a.setFlash(notify.ErrorOf("Failed to Load Tasks", "Something went wrong while loading your board."))
		}
	}
}

func (a *App) closeBoardLocked() error {
	if a.live == nil {
		return nil
	}
	live := a.live
	a.live = nil
	live.cancel()
	<-live.done
	return live.board.Close()
}

func (a *App) setFlash(n notify.Notification) {
	a.flashMu.Lock()
	defer a.flashMu.Unlock()
	a.flash = n
}

func (a *App) takeFlash() notify.Notification {
	a.flashMu.Lock()
	defer a.flashMu.Unlock()
	n := a.flash
	a.flash = notify.Notification{}
	return n
}

// screen returns the detail view-model for task id, loading it when the
// screen shows another task or reload is set.
func (a *App) screen(ctx context.Context, id string, reload bool) (*board.Detail, error) {
	a.mu.Lock()
	d := a.detail
	a.mu.Unlock()
	if d != nil && !reload && d.Task().ID == id {
		return d, nil
	}

	d, err := board.LoadDetail(ctx, a.gw, id, a.log)
	if err != nil {
		return nil, err
	}
	a.mu.Lock()
	a.detail = d
	a.mu.Unlock()
	return d, nil
}
