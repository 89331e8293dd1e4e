package funnel

import "time"

// Step is one stage of the checkout funnel. Transitions are strictly forward
// or one step backward along plan -> register -> billing -> processing ->
// reveal; processing cannot be left except by completing.
type Step string

const (
	StepPlan       Step = "plan"
	StepRegister   Step = "register"
	StepBilling    Step = "billing"
	StepProcessing Step = "processing"
	StepReveal     Step = "reveal"
)

// Valid reports whether s is a member of the step enum.
func (s Step) Valid() bool {
	switch s {
	case StepPlan, StepRegister, StepBilling, StepProcessing, StepReveal:
		return true
	}
	return false
}

// Plan is a subscription tier offered on the pricing step.
type Plan string

const (
	PlanTrial   Plan = "trial"
	PlanMonthly Plan = "monthly"
	PlanYearly  Plan = "yearly"
)

// Valid reports whether p is a member of the plan enum.
func (p Plan) Valid() bool {
	switch p {
	case PlanTrial, PlanMonthly, PlanYearly:
		return true
	}
	return false
}

// Outcome is the terminal disposition of a session that reached reveal.
type Outcome string

const (
	OutcomeNone     Outcome = ""
	OutcomeAccepted Outcome = "accepted"
	OutcomeDeclined Outcome = "declined"
)

// UserData holds the contact details collected on the registration step.
type UserData struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Metrics tracks funnel timing for a single run.
type Metrics struct {
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// State is the wizard state for one funnel session. It is mutated only
// through Apply.
type State struct {
	Step         Step     `json:"step"`
	SelectedPlan Plan     `json:"selected_plan"`
	UserData     UserData `json:"user_data"`
	Metrics      Metrics  `json:"metrics"`
	Outcome      Outcome  `json:"outcome,omitempty"`
}

// NewState returns the initial wizard state: plan step, trial preselected.
func NewState(now time.Time) State {
	return State{
		Step:         StepPlan,
		SelectedPlan: PlanTrial,
		Metrics:      Metrics{StartedAt: now},
	}
}

// PlanData describes one entry of the fixed plan catalog.
type PlanData struct {
	ID            Plan     `json:"id"`
	Name          string   `json:"name"`
	Price         string   `json:"price"`
	Period        string   `json:"period"`
	OriginalPrice string   `json:"original_price,omitempty"`
	Discount      string   `json:"discount,omitempty"`
	Description   string   `json:"description"`
	Features      []string `json:"features"`
	Popular       bool     `json:"popular,omitempty"`
	Badge         string   `json:"badge,omitempty"`
}

// PriceRUB returns the monthly price of the plan in rubles.
func (p Plan) PriceRUB() int {
	switch p {
	case PlanMonthly:
		return 1990
	case PlanYearly:
		return 1330
	default:
		return 0
	}
}

// Catalog returns the fixed plan catalog shown on the plan step.
func Catalog() []PlanData {
	return []PlanData{
		{
			ID:          PlanTrial,
			Name:        "Пробный период",
			Price:       "0₽",
			Period:      "7 дней бесплатно",
			Description: "Попробуйте все возможности",
			Features: []string{
				"Полный доступ ко всем функциям",
				"Безлимитные треки",
				"Отмена в любой момент",
			},
		},
		{
			ID:          PlanMonthly,
			Name:        "Месячная подписка",
			Price:       "1,990₽",
			Period:      "в месяц",
			Description: "Отмена в любой момент",
			Features: []string{
				"Безлимитные треки",
				"Все настройки эмоций",
				"Высокое качество (320kbps)",
				"Приоритетная поддержка",
				"Экспорт в разных форматах",
				"Коммерческое использование",
			},
		},
		{
			ID:            PlanYearly,
			Name:          "Годовая подписка",
			Price:         "1,330₽",
			Period:        "в месяц",
			OriginalPrice: "1,990₽",
			Discount:      "-33%",
			Description:   "Самый выгодный тариф",
			Badge:         "РЕКОМЕНДУЕМ",
			Popular:       true,
			Features: []string{
				"Все возможности месячной подписки",
				"Экономия 33%",
				"Эксклюзивные пресеты",
				"Ранний доступ к новым функциям",
				"Персональный менеджер",
			},
		},
	}
}

// PlanDisplayName returns the human label used in notifications and emails.
func PlanDisplayName(p Plan) string {
	switch p {
	case PlanTrial:
		return "Пробный период (7 дней бесплатно)"
	case PlanMonthly:
		return "Месячная подписка (1,990₽/мес)"
	case PlanYearly:
		return "Годовая подписка (1,330₽/мес)"
	default:
		return string(p)
	}
}
