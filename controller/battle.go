package controller

import (
	"errors"
	"net/http"

	"go-battle/dto"
	"go-battle/entities"
	"go-battle/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type BattleController struct {
	manager *service.Manager
	logger  *zap.Logger
}

func NewBattleController(manager *service.Manager, logger *zap.Logger) *BattleController {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BattleController{manager: manager, logger: logger}
}

// fail maps service errors onto status codes.
func (bc *BattleController) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrBattleNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidSpeed):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		bc.logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func (bc *BattleController) CreateBattle(c *gin.Context) {
	var req dto.CreateBattleRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
	}

	battleID, err := bc.manager.Create(c.Request.Context(), req)
	if err != nil {
		bc.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status_code": http.StatusOK,
		"msg":         "battle created",
		"data":        dto.CreateBattleResponse{BattleID: battleID},
	})
}

func (bc *BattleController) GetBattleList(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status_code": http.StatusOK,
		"msg":         "ok",
		"data":        dto.GetBattleList{Battles: bc.manager.List()},
	})
}

func (bc *BattleController) GetBattle(c *gin.Context) {
	st, err := bc.manager.State(c.Request.Context(), c.Param("battleID"))
	if err != nil {
		bc.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status_code": http.StatusOK,
		"msg":         "ok",
		"data":        st,
	})
}

func (bc *BattleController) Purchase(c *gin.Context) {
	var req dto.PurchaseRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
	}
	side := entities.Primary
	if req.Side != "" {
		var err error
		if side, err = entities.ParseSide(req.Side); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	battleID := c.Param("battleID")
	ok, err := bc.manager.Purchase(c.Request.Context(), battleID, side)
	if err != nil {
		bc.fail(c, err)
		return
	}
	st, err := bc.manager.State(c.Request.Context(), battleID)
	if err != nil {
		bc.fail(c, err)
		return
	}

	msg := "card purchased"
	if !ok {
		msg = "insufficient resources"
	}
	c.JSON(http.StatusOK, gin.H{
		"status_code": http.StatusOK,
		"msg":         msg,
		"data":        dto.PurchaseResponse{Purchased: ok, State: &st},
	})
}

func (bc *BattleController) Resume(c *gin.Context) {
	if err := bc.manager.Resume(c.Request.Context(), c.Param("battleID")); err != nil {
		bc.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status_code": http.StatusOK,
		"msg":         "battle resumed",
	})
}

func (bc *BattleController) SetSpeed(c *gin.Context) {
	var req dto.SpeedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "speed is required and must be >= 0"})
		return
	}
	if err := bc.manager.SetSpeed(c.Param("battleID"), *req.Speed); err != nil {
		bc.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status_code": http.StatusOK,
		"msg":         "speed updated",
	})
}

func (bc *BattleController) DeleteBattle(c *gin.Context) {
	if err := bc.manager.Delete(c.Request.Context(), c.Param("battleID")); err != nil {
		bc.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status_code": http.StatusOK,
		"msg":         "battle deleted",
	})
}
