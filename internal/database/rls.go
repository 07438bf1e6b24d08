package database

import "gorm.io/gorm"

// rowLevelSecurity restricts anon-handle profile reads to the caller's own
// row plus approved directory entries. The anon login role must be granted
// "authenticated" so ScopedRead can switch into it.
var rowLevelSecurity = []string{
	`DO $$ BEGIN
		IF NOT EXISTS (SELECT 1 FROM pg_roles WHERE rolname = 'authenticated') THEN
			CREATE ROLE authenticated NOLOGIN;
		END IF;
	END $$`,
	`GRANT USAGE ON SCHEMA public TO authenticated`,
	`GRANT SELECT ON ALL TABLES IN SCHEMA public TO authenticated`,
	`GRANT UPDATE ON profiles TO authenticated`,
	`REVOKE ALL ON auth_users FROM authenticated`,
	`ALTER TABLE profiles ENABLE ROW LEVEL SECURITY`,
	`DROP POLICY IF EXISTS profiles_read ON profiles`,
	`CREATE POLICY profiles_read ON profiles FOR SELECT USING (
		id::text = current_setting('request.jwt.claim.sub', true)
		OR (status = 'approved' AND show_in_directory)
	)`,
	`DROP POLICY IF EXISTS profiles_update_self ON profiles`,
	`CREATE POLICY profiles_update_self ON profiles FOR UPDATE USING (
		id::text = current_setting('request.jwt.claim.sub', true)
	)`,
}

func applyRowLevelSecurity(db *gorm.DB) error {
	return db.Transaction(func(tx *gorm.DB) error {
		for _, stmt := range rowLevelSecurity {
			if err := tx.Exec(stmt).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
