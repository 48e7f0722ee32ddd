package server

import (
	"regexp"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/vitrinelive/storefront/backend"
	"github.com/vitrinelive/storefront/cart"
	"github.com/vitrinelive/storefront/errors"
	"github.com/vitrinelive/storefront/evictor"
	"github.com/vitrinelive/storefront/guard"
	"github.com/vitrinelive/storefront/logger"
	"github.com/vitrinelive/storefront/notify"
	"github.com/vitrinelive/storefront/server/middleware"
)

// API exposes the cart, guard, and notification operations over HTTP.
type API struct {
	backend *backend.Client
	cart    *cart.Store
	guard   *guard.Guard
	notify  *notify.Center
	evictor *evictor.Evictor
	log     *logger.Logger
}

// NewAPI creates the API handler set.
func NewAPI(bc *backend.Client, cs *cart.Store, g *guard.Guard, nc *notify.Center, ev *evictor.Evictor) *API {
	registerValidators()
	return &API{
		backend: bc,
		cart:    cs,
		guard:   g,
		notify:  nc,
		evictor: ev,
		log:     logger.GetGlobalLogger().WithComponent("api"),
	}
}

// Register mounts the API routes on the engine.
func (a *API) Register(engine *gin.Engine) {
	api := engine.Group("/api")
	api.GET("/cart", a.getCart)
	api.POST("/cart/items", a.addItem)
	api.PUT("/cart/items/:id", a.updateQuantity)
	api.DELETE("/cart/items/:id", a.deleteItem)
	api.GET("/access", a.checkAccess)
	api.GET("/owner", a.ownedStore)
	api.GET("/notifications", a.listNotifications)
}

// decimalRe accepts the backend's decimal-string format for money and
// weights.
var decimalRe = regexp.MustCompile(`^[0-9]+(\.[0-9]{1,3})?$`)

var validatorsOnce sync.Once

// registerValidators installs the custom "decimal" rule on Gin's binding
// validator.
func registerValidators() {
	validatorsOnce.Do(func() {
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			_ = v.RegisterValidation("decimal", func(fl validator.FieldLevel) bool {
				return decimalRe.MatchString(fl.Field().String())
			})
		}
	})
}

type addItemRequest struct {
	StoreID          int64  `json:"storeId" binding:"required,gt=0"`
	ProductReference string `json:"productReference" binding:"required"`
	UnitValue        string `json:"unitValue" binding:"required,decimal"`
	Quantity         int    `json:"quantity" binding:"required,gte=1"`
	Weight           string `json:"weight" binding:"omitempty,decimal"`
}

type updateQuantityBody struct {
	Quantity int `json:"quantity" binding:"required,gte=1"`
}

type cartItemView struct {
	ID               int64  `json:"id"`
	StoreID          int64  `json:"storeId"`
	ProductReference string `json:"productReference"`
	UnitValue        string `json:"unitValue"`
	Quantity         int    `json:"quantity"`
	Weight           string `json:"weight,omitempty"`
	CountdownSeconds int64  `json:"countdownSeconds"`
}

type cartGroupView struct {
	Store    backend.Store  `json:"store"`
	Items    []cartItemView `json:"items"`
	Subtotal string         `json:"subtotal"`
}

type cartView struct {
	GrandTotal string          `json:"grandTotal"`
	Groups     []cartGroupView `json:"groups"`
}

// customerFor resolves the session user to a payment customer and binds the
// cart to it. Cart operations need an account.
func (a *API) customerFor(c *gin.Context) bool {
	user := middleware.CurrentUser(c)
	if user == nil {
		RespondWithError(c, errors.Unauthorized(""))
		return false
	}

	ctx := c.Request.Context()
	customerID, err := a.cart.ResolveCustomerID(ctx, user.Email)
	if err != nil {
		RespondWithError(c, err)
		return false
	}
	if err := a.cart.EnsureActive(ctx, customerID); err != nil {
		RespondWithError(c, err)
		return false
	}
	return true
}

func (a *API) getCart(c *gin.Context) {
	if !a.customerFor(c) {
		return
	}
	if err := a.cart.Refresh(c.Request.Context()); err != nil {
		// previous snapshot still renders; surface the failure softly
		a.notify.Push(notify.LevelError, "Impossible de rafraîchir le panier.")
	}

	groups, grandTotal := a.cart.Snapshot()
	now := time.Now()

	view := cartView{GrandTotal: grandTotal, Groups: make([]cartGroupView, 0, len(groups))}
	for _, g := range groups {
		gv := cartGroupView{Store: g.Store, Subtotal: g.Subtotal, Items: make([]cartItemView, 0, len(g.Items))}
		for _, item := range g.Items {
			gv.Items = append(gv.Items, cartItemView{
				ID:               item.ID,
				StoreID:          item.StoreID,
				ProductReference: item.ProductReference,
				UnitValue:        item.UnitValue,
				Quantity:         item.Quantity,
				Weight:           item.Weight,
				CountdownSeconds: int64(a.evictor.Countdown(item, now).Seconds()),
			})
		}
		view.Groups = append(view.Groups, gv)
	}
	RespondOK(c, view)
}

func (a *API) addItem(c *gin.Context) {
	var req addItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondWithError(c, errors.InvalidInput("", err.Error()))
		return
	}
	if !a.customerFor(c) {
		return
	}

	err := a.cart.AddOrMerge(c.Request.Context(), cart.AddItem{
		StoreID:          req.StoreID,
		ProductReference: req.ProductReference,
		UnitValue:        req.UnitValue,
		Quantity:         req.Quantity,
		Weight:           req.Weight,
	})
	if err != nil {
		a.notify.Push(notify.LevelError, "L'article n'a pas pu être ajouté au panier.")
		RespondWithError(c, err)
		return
	}
	a.notify.Push(notify.LevelSuccess, "Article ajouté au panier.")
	RespondCreated(c, gin.H{"status": "added"})
}

func (a *API) updateQuantity(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		RespondWithError(c, errors.InvalidInput("id", "must be a number"))
		return
	}
	var body updateQuantityBody
	if err := c.ShouldBindJSON(&body); err != nil {
		RespondWithError(c, errors.InvalidInput("quantity", err.Error()))
		return
	}
	if !a.customerFor(c) {
		return
	}

	if err := a.cart.UpdateQuantity(c.Request.Context(), id, body.Quantity); err != nil {
		a.notify.Push(notify.LevelError, "La quantité n'a pas pu être mise à jour.")
		RespondWithError(c, err)
		return
	}
	RespondOK(c, gin.H{"status": "updated"})
}

func (a *API) deleteItem(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		RespondWithError(c, errors.InvalidInput("id", "must be a number"))
		return
	}
	if !a.customerFor(c) {
		return
	}

	if err := a.cart.Delete(c.Request.Context(), id); err != nil {
		a.notify.Push(notify.LevelError, "L'article n'a pas pu être retiré du panier.")
		RespondWithError(c, err)
		return
	}
	RespondNoContent(c)
}

func (a *API) checkAccess(c *gin.Context) {
	path := c.Query("path")
	if path == "" {
		RespondWithError(c, errors.MissingField("path"))
		return
	}

	state := a.guard.Evaluate(c.Request.Context(), path, middleware.CurrentUser(c))
	RespondOK(c, state)
}

// ownedStore resolves the store owned by the signed-in seller, so the
// dashboard and orders views can build their slugged routes. The envelope
// carries a null store for accounts that own none.
func (a *API) ownedStore(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if user == nil {
		RespondWithError(c, errors.Unauthorized(""))
		return
	}

	owned, err := a.backend.CheckOwner(c.Request.Context(), user.Email)
	if err != nil {
		RespondWithError(c, err)
		return
	}
	RespondOK(c, owned)
}

func (a *API) listNotifications(c *gin.Context) {
	RespondOK(c, a.notify.Active())
}
