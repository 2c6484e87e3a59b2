package httpapi_test

import (
	"strconv"

	"health-records/internal/repository"
)

func jsonNumber(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

func repositoryFilter() repository.EmployeeFilter {
	return repository.EmployeeFilter{}
}
