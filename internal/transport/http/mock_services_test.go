package http

import (
	"context"

	"github.com/stretchr/testify/mock"

	"optexec/internal/execution"
	"optexec/internal/services"
)

// MockExecutionService is a mock for ExecutionService
type MockExecutionService struct {
	mock.Mock
}

func (m *MockExecutionService) Execute(ctx context.Context, orderSize, urgency float64, strategy string) (*services.ExecutionRecord, error) {
	args := m.Called(orderSize, urgency, strategy)
	record, _ := args.Get(0).(*services.ExecutionRecord)
	return record, args.Error(1)
}

func (m *MockExecutionService) Compare(ctx context.Context, orderSize, urgency float64) (services.ComparisonReport, error) {
	args := m.Called(orderSize, urgency)
	return args.Get(0).(services.ComparisonReport), args.Error(1)
}

func (m *MockExecutionService) OptimizePortfolio(ctx context.Context, orders []execution.PortfolioOrder, corr execution.CorrelationMatrix, method string) (execution.PortfolioResult, error) {
	args := m.Called(orders, corr, method)
	return args.Get(0).(execution.PortfolioResult), args.Error(1)
}

func (m *MockExecutionService) MarketConditions(ctx context.Context) (execution.MarketConditions, error) {
	args := m.Called()
	return args.Get(0).(execution.MarketConditions), args.Error(1)
}
