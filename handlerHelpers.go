package main

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/camps_backend/models"
	"github.com/gin-gonic/gin"
)

func idParam(c *gin.Context, name string) (int, error) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		return 0, errors.New(name + " must be a positive integer")
	}
	return id, nil
}

func intQuery(c *gin.Context, name string) (*int, error) {
	v := strings.TrimSpace(c.Query(name))
	if v == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return nil, errors.New(name + " must be an integer")
	}
	return &n, nil
}

func stringQuery(c *gin.Context, name string) *string {
	v := strings.TrimSpace(c.Query(name))
	if v == "" {
		return nil
	}
	return &v
}

const defaultPageSize = 50

// limitQuery caps page sizes and defaults when the parameter is absent.
func limitQuery(c *gin.Context) (*int, error) {
	limit, err := intQuery(c, "limit")
	if err != nil {
		return nil, err
	}
	if limit == nil {
		n := defaultPageSize
		return &n, nil
	}
	if *limit <= 0 || *limit > 200 {
		return nil, errors.New("limit must be between 1 and 200")
	}
	return limit, nil
}

// dateQuery parses a yyyy-mm-dd query value into the wire date type.
func dateQuery(c *gin.Context, name string) (*models.MyDateString, error) {
	v := strings.TrimSpace(c.Query(name))
	if v == "" {
		return nil, nil
	}
	d, err := models.ParseDateString(v)
	if err != nil {
		return nil, errors.New(name + " must be a yyyy-mm-dd date")
	}
	return &d, nil
}

// dateRangeQuery widens from_date/to_date calendar dates to UTC instants in
// the organization's timezone.
func dateRangeQuery(c *gin.Context) (*time.Time, *time.Time, error) {
	fromDate, err := dateQuery(c, "from_date")
	if err != nil {
		return nil, nil, err
	}
	toDate, err := dateQuery(c, "to_date")
	if err != nil {
		return nil, nil, err
	}
	if fromDate == nil && toDate == nil {
		return nil, nil, nil
	}

	organization, err := models.GetOrganization(c.Request.Context())
	if err != nil {
		return nil, nil, err
	}

	var from, to *time.Time
	if fromDate != nil {
		if err := fromDate.StartOfDayUTCTime(organization.Timezone); err != nil {
			return nil, nil, err
		}
		t := time.Time(*fromDate)
		from = &t
	}
	if toDate != nil {
		if err := toDate.EndOfDayUTCTime(organization.Timezone); err != nil {
			return nil, nil, err
		}
		t := time.Time(*toDate)
		to = &t
	}
	return from, to, nil
}
