package seeder

import (
	"context"
	"encoding/json"

	"study-sync/internal/database"

	"github.com/google/uuid"
)

// seedNamespace derives stable student ids from their e-mail so re-running
// the seeder never duplicates rows.
var seedNamespace = uuid.MustParse("3f1f7f2e-9c1a-4b53-a1c7-5a3b8b0d2e10")

// StudentID returns the id the seeder assigns to the demo student with email.
func StudentID(email string) uuid.UUID {
	return uuid.NewSHA1(seedNamespace, []byte(email))
}

type StudentsSeeder struct{}

func (StudentsSeeder) Name() string { return "students" }

type demoStudent struct {
	Email        string
	University   string
	Major        string
	Year         int
	Courses      []string
	Intensity    int
	GroupSize    int
	Environment  string
	Methods      []string
	Location     string
	Availability map[string][]string
	Campus       string
	City         string
	State        string
	Goals        []string
}

func demoStudents() []demoStudent {
	return []demoStudent{
		{
			Email: "ana@example.edu", University: "State University", Major: "Computer Science", Year: 2,
			Courses: []string{"CS101", "MATH201"}, Intensity: 4, GroupSize: 2, Environment: "quiet",
			Methods: []string{"practice problems", "flashcards"}, Location: "in_person",
			Availability: map[string][]string{"monday": {"evening"}, "wednesday": {"evening"}},
			Campus: "North", City: "Austin", State: "TX", Goals: []string{"ace finals"},
		},
		{
			Email: "ben@example.edu", University: "State University", Major: "Computer Science", Year: 2,
			Courses: []string{"CS101", "PHYS100"}, Intensity: 3, GroupSize: 3, Environment: "quiet",
			Methods: []string{"practice problems"}, Location: "hybrid",
			Availability: map[string][]string{"monday": {"evening", "night"}},
			Campus: "North", City: "Austin", State: "TX", Goals: []string{"ace finals", "deep understanding"},
		},
		{
			Email: "chen@example.edu", University: "State University", Major: "Mathematics", Year: 3,
			Courses: []string{"MATH201", "MATH305"}, Intensity: 5, GroupSize: 4, Environment: "moderate",
			Methods: []string{"teaching"}, Location: "online",
			Availability: map[string][]string{"tuesday": {"morning"}},
			City: "Dallas", State: "TX", Goals: []string{"grad school"},
		},
		{
			Email: "dara@example.edu", University: "State University", Major: "Physics", Year: 1,
			Courses: []string{"PHYS100", "MATH201", "CS101"}, Intensity: 2, GroupSize: 5, Environment: "lively",
			Methods: []string{"summaries", "flashcards"}, Location: "in_person",
			Availability: map[string][]string{"monday": {"evening"}, "friday": {"afternoon"}},
			Campus: "South", City: "Austin", State: "TX", Goals: []string{"pass"},
		},
	}
}

func (StudentsSeeder) Run(ctx context.Context, db database.DB) error {
	if err := RequireColumns(ctx, db, "students", "id", "email", "courses", "availability", "is_verified"); err != nil {
		return err
	}

	return database.WithTx(ctx, db, func(tx database.Tx) error {
		for _, s := range demoStudents() {
			avail, err := json.Marshal(s.Availability)
			if err != nil {
				return err
			}
			_, err = tx.Exec(ctx,
				`INSERT INTO students (
					id, email, university, major, year, courses,
					study_intensity, preferred_group_size, study_environment, study_methods, study_location,
					availability, campus, city, state, goals, is_active, is_verified
				) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,TRUE,TRUE)
				ON CONFLICT (id) DO NOTHING`,
				StudentID(s.Email),
				s.Email, s.University, s.Major, s.Year, s.Courses,
				s.Intensity, s.GroupSize, s.Environment, s.Methods, s.Location,
				avail, s.Campus, s.City, s.State, s.Goals,
			)
			if err != nil {
				return err
			}
		}
		return nil
	})
}
