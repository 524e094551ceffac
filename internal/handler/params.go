package handler

import (
	"fmt"
	"math/big"
	"strconv"

	"github.com/blues/liftoff/internal/liftoff"
	"github.com/blues/liftoff/internal/wad"
	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
)

// CallerHeader 调用方地址请求头
const CallerHeader = "X-Caller-Address"

// callerOf 解析调用方地址
func callerOf(c *gin.Context) (common.Address, error) {
	return parseAddress(c.GetHeader(CallerHeader), "caller")
}

func parseAddress(s, field string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, liftoff.Invalid(fmt.Sprintf("%s address %q is malformed", field, s))
	}
	return common.HexToAddress(s), nil
}

// optionalAddress 为空时使用 fallback
func optionalAddress(s, field string, fallback common.Address) (common.Address, error) {
	if s == "" {
		return fallback, nil
	}
	return parseAddress(s, field)
}

func parseAmount(s string) (*big.Int, error) {
	v, err := wad.Parse(s)
	if err != nil {
		return nil, liftoff.Invalid(err.Error())
	}
	return v, nil
}

func uintParam(c *gin.Context, name, label string) (uint64, error) {
	v, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil {
		return 0, liftoff.Invalid("无效的" + label)
	}
	return v, nil
}

func raiseID(c *gin.Context) (uint64, error) {
	return uintParam(c, "id", "募资ID")
}

// pageParams 分页参数, 与记录查询一致
func pageParams(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "10"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 10
	}
	return page, pageSize
}

func pagination(page, pageSize int, total int64) gin.H {
	return gin.H{
		"page":       page,
		"page_size":  pageSize,
		"total":      total,
		"total_page": (total + int64(pageSize) - 1) / int64(pageSize),
	}
}
