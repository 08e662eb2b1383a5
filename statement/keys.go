package statement

// Metric keys understood by the workbook template and requested from the LLM.
const (
	KeySaleOfGoods            = "sale_of_goods"
	KeyExportSales            = "export_sales"
	KeyServiceRevenue         = "service_revenue"
	KeyOtherOperatingRevenues = "other_operating_revenues"
	KeyRevenueFromOperations  = "revenue_from_operations"
	KeyOtherIncome            = "other_income"
	KeyTotalIncome            = "total_income"

	KeyCostOfMaterials         = "cost_of_materials_consumed"
	KeyExciseDuty              = "excise_duty"
	KeyPurchasesStockInTrade   = "purchases_stock_in_trade"
	KeyChangesInInventories    = "changes_in_inventories"
	KeyEmployeeBenefits        = "employee_benefits_expense"
	KeyFinanceCosts            = "finance_costs"
	KeyDepreciation            = "depreciation_amortisation_expense"
	KeyOtherExpense            = "other_expense"
	KeyAdvertisingExpense      = "advertising_expense"
	KeyImpairmentLosses        = "impairment_losses"
	KeyTotalExpenses           = "total_expenses"
	KeyProfitBeforeExceptional = "profit_before_exceptional_and_tax"
	KeyExceptionalItems        = "exceptional_item_expense"
	KeyProfitBeforeTax         = "profit_before_tax"

	KeyCurrentTax      = "current_tax"
	KeyDeferredTax     = "deferred_tax"
	KeyTotalTaxExpense = "total_tax_expense"
	KeyNetProfit       = "net_profit"

	KeyOCINonReclassItems       = "oci_non_reclass_items"
	KeyTaxOnNonReclassItems     = "tax_on_non_reclass_items"
	KeyOtherComprehensiveIncome = "other_comprehensive_income"
	KeyTotalComprehensiveIncome = "total_comprehensive_income"

	KeyPaidUpEquity = "paid_up_equity_share_capital"
	KeyOtherEquity  = "other_equity"
	KeyEPSBasic     = "eps_basic"
	KeyEPSDiluted   = "eps_diluted"

	KeyEBITDA = "ebitda"
)

// MetricGroup is a titled list of keys, used to build the LLM prompt.
type MetricGroup struct {
	Title string
	Keys  []string
}

// Catalogue lists every extractable metric grouped by statement section.
var Catalogue = []MetricGroup{
	{Title: "Revenue", Keys: []string{
		KeySaleOfGoods, KeyExportSales, KeyServiceRevenue, KeyOtherOperatingRevenues,
		KeyRevenueFromOperations, KeyOtherIncome, KeyTotalIncome,
	}},
	{Title: "Expenses", Keys: []string{
		KeyCostOfMaterials, KeyExciseDuty, KeyPurchasesStockInTrade, KeyChangesInInventories,
		KeyEmployeeBenefits, KeyFinanceCosts, KeyDepreciation, KeyOtherExpense,
		KeyAdvertisingExpense, KeyImpairmentLosses, KeyTotalExpenses,
	}},
	{Title: "Profit & Tax", Keys: []string{
		KeyProfitBeforeExceptional, KeyExceptionalItems, KeyProfitBeforeTax,
		KeyCurrentTax, KeyDeferredTax, KeyTotalTaxExpense, KeyNetProfit,
	}},
	{Title: "Other Comprehensive Income", Keys: []string{
		KeyOCINonReclassItems, KeyTaxOnNonReclassItems,
		KeyOtherComprehensiveIncome, KeyTotalComprehensiveIncome,
	}},
	{Title: "Equity & EPS", Keys: []string{
		KeyPaidUpEquity, KeyOtherEquity, KeyEPSBasic, KeyEPSDiluted,
	}},
}

// keyAliases maps legacy or company-specific keys onto canonical ones.
var keyAliases = map[string]string{
	"sale_of_products": KeySaleOfGoods,
}

// CanonicalKey resolves aliases. Unknown keys are returned unchanged.
func CanonicalKey(key string) string {
	if alias, ok := keyAliases[key]; ok {
		return alias
	}
	return key
}

// IsKnownKey reports whether key (after alias resolution) is in the catalogue
// or is the derived EBITDA key.
func IsKnownKey(key string) bool {
	key = CanonicalKey(key)
	if key == KeyEBITDA {
		return true
	}
	for _, group := range Catalogue {
		for _, k := range group.Keys {
			if k == key {
				return true
			}
		}
	}
	return false
}
