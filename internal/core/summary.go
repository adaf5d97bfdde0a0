package core

// RewardsResult is a customer's points over the trailing window, broken down by month.
type RewardsResult struct {
	CustomerID    int64         `json:"customerId"`
	CustomerName  string        `json:"customerName"`
	MonthlyPoints MonthlyPoints `json:"monthlyPoints"`
	TotalPoints   int64         `json:"totalPoints"`
}

// NewRewardsResult derives TotalPoints from the monthly breakdown so the two never disagree.
func NewRewardsResult(customer Customer, monthly MonthlyPoints) RewardsResult {
	return RewardsResult{
		CustomerID:    customer.ID,
		CustomerName:  customer.Name,
		MonthlyPoints: monthly,
		TotalPoints:   monthly.Total(),
	}
}
